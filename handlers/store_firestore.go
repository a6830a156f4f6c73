package handlers

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProgressStore implements ProgressStore using Firestore.
// Documents are keyed "<userID>_<courseID>" so the natural key maps to
// one document and Upsert is a single Set.
type FirestoreProgressStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreProgressStore creates a new Firestore-backed progress store.
func NewFirestoreProgressStore(client *firestore.Client) *FirestoreProgressStore {
	return &FirestoreProgressStore{
		client:     client,
		collection: ProgressCollection,
	}
}

func progressDocID(userID, courseID string) string {
	return userID + "_" + courseID
}

func (s *FirestoreProgressStore) Find(ctx context.Context, userID, courseID string) (*ProgressRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(progressDocID(userID, courseID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rec ProgressRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, err
	}
	rec.ID = doc.Ref.ID
	return &rec, nil
}

func (s *FirestoreProgressStore) ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error) {
	query := s.client.Collection(s.collection).
		Where("user_id", "==", userID).
		OrderBy("updated_at", firestore.Desc)
	return s.collect(query.Documents(ctx))
}

func (s *FirestoreProgressStore) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]ProgressRecord, error) {
	query := s.client.Collection(s.collection).
		Where("user_id", "==", userID).
		Where("created_at", ">=", since).
		OrderBy("created_at", firestore.Asc)
	return s.collect(query.Documents(ctx))
}

func (s *FirestoreProgressStore) collect(iter *firestore.DocumentIterator) ([]ProgressRecord, error) {
	defer iter.Stop()

	var results []ProgressRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var rec ProgressRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, err
		}
		rec.ID = doc.Ref.ID
		results = append(results, rec)
	}
	return results, nil
}

// Upsert creates or updates the record for (UserID, CourseID). On update
// the original creation time, week, and past progress are preserved; on
// create the caller-provided week is recorded.
func (s *FirestoreProgressStore) Upsert(ctx context.Context, rec *ProgressRecord) (*ProgressRecord, error) {
	ref := s.client.Collection(s.collection).Doc(progressDocID(rec.UserID, rec.CourseID))

	doc, err := ref.Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, err
	}

	out := *rec
	if err == nil && doc.Exists() {
		var existing ProgressRecord
		if err := doc.DataTo(&existing); err != nil {
			return nil, err
		}
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

	if _, err := ref.Set(ctx, &out); err != nil {
		return nil, err
	}
	out.ID = ref.ID
	return &out, nil
}

func (s *FirestoreProgressStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	iter := s.client.Collection(s.collection).Where("user_id", "==", userID).Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, err
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
