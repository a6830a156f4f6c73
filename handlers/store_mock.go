package handlers

import (
	"context"
	"sync"
	"time"
)

// MockProgressStore is an in-memory ProgressStore for testing. Error
// fields let tests force individual operations to fail. Commits records
// the progress values in the order upserts completed so tests can assert
// commit ordering; UpsertDelay makes the persistence window wide enough
// to provoke races.
type MockProgressStore struct {
	mu          sync.Mutex
	records     map[string]ProgressRecord
	Commits     []int
	UpsertDelay time.Duration

	FindErr   error
	ListErr   error
	UpsertErr error
	DeleteErr error
}

func NewMockProgressStore() *MockProgressStore {
	return &MockProgressStore{
		records: make(map[string]ProgressRecord),
	}
}

func (m *MockProgressStore) key(userID, courseID string) string {
	return userID + "_" + courseID
}

func (m *MockProgressStore) Find(ctx context.Context, userID, courseID string) (*ProgressRecord, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[m.key(userID, courseID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MockProgressStore) ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []ProgressRecord
	for _, rec := range m.records {
		if rec.UserID == userID {
			results = append(results, rec)
		}
	}
	return results, nil
}

func (m *MockProgressStore) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]ProgressRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []ProgressRecord
	for _, rec := range m.records {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			results = append(results, rec)
		}
	}
	return results, nil
}

func (m *MockProgressStore) Upsert(ctx context.Context, rec *ProgressRecord) (*ProgressRecord, error) {
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	if m.UpsertDelay > 0 {
		time.Sleep(m.UpsertDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.key(rec.UserID, rec.CourseID)
	out := *rec
	if existing, ok := m.records[key]; ok {
		out.CreatedAt = existing.CreatedAt
		out.Week = existing.Week
		out.PastProgress = existing.PastProgress
		if out.ModuleID == "" {
			out.ModuleID = existing.ModuleID
		}
		if out.QuizID == "" {
			out.QuizID = existing.QuizID
		}
	} else {
		out.CreatedAt = out.UpdatedAt
		out.PastProgress = 0
	}
	out.ID = key
	m.records[key] = out
	m.Commits = append(m.Commits, out.Progress)
	return &out, nil
}

func (m *MockProgressStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key, rec := range m.records {
		if rec.UserID == userID {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// LastCommit returns the most recently committed progress value, or -1.
func (m *MockProgressStore) LastCommit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commits) == 0 {
		return -1
	}
	return m.Commits[len(m.Commits)-1]
}

// CommitOrder returns a copy of the committed progress values in order.
func (m *MockProgressStore) CommitOrder() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.Commits))
	copy(out, m.Commits)
	return out
}

// MockCompleter is a canned Completer for testing.
type MockCompleter struct {
	mu       sync.Mutex
	Response string
	Err      error
	calls    int
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockEventPublisher records published events for testing.
type MockEventPublisher struct {
	mu         sync.Mutex
	Published  [][]byte
	PublishErr error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, data)
	return nil
}

func (m *MockEventPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}
