package handlers

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
)

func skipIfNoEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping integration test: FIRESTORE_EMULATOR_HOST not set")
	}
}

func skipIfNoPubSubEmulator(t *testing.T) {
	if os.Getenv("PUBSUB_EMULATOR_HOST") == "" {
		t.Skip("Skipping integration test: PUBSUB_EMULATOR_HOST not set")
	}
}

func setupFirestoreClient(t *testing.T) *firestore.Client {
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("Failed to create Firestore client: %v", err)
	}
	return client
}

func setupPubSubClient(t *testing.T) *pubsub.Client {
	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("Failed to create Pub/Sub client: %v", err)
	}
	return client
}

// =============================================================================
// Firestore Progress Store Integration Tests
// =============================================================================

func TestFirestoreProgressStore_UpsertAndFind(t *testing.T) {
	skipIfNoEmulator(t)
	client := setupFirestoreClient(t)
	defer client.Close()

	store := NewFirestoreProgressStore(client)
	ctx := context.Background()

	userID := "it-student-" + time.Now().Format("20060102150405")
	now := time.Now().UTC()

	created, err := store.Upsert(ctx, &ProgressRecord{
		UserID:    userID,
		CourseID:  "it-course",
		Progress:  30,
		ModuleID:  "mod-1",
		Week:      weekOfMonth(now),
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to upsert progress: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set on create")
	}

	found, err := store.Find(ctx, userID, "it-course")
	if err != nil {
		t.Fatalf("Failed to find progress: %v", err)
	}
	if found.Progress != 30 {
		t.Errorf("Progress mismatch: got %d, want %d", found.Progress, 30)
	}

	// Upsert again: the record updates in place, CreatedAt survives.
	updated, err := store.Upsert(ctx, &ProgressRecord{
		UserID:    userID,
		CourseID:  "it-course",
		Progress:  55,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to update progress: %v", err)
	}
	if updated.Progress != 55 {
		t.Errorf("Progress mismatch after update: got %d, want %d", updated.Progress, 55)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Expected CreatedAt to be preserved on update")
	}
	if updated.ModuleID != "mod-1" {
		t.Errorf("Expected empty moduleId update to keep stored value, got %q", updated.ModuleID)
	}
}

func TestFirestoreProgressStore_Find_NotFound(t *testing.T) {
	skipIfNoEmulator(t)
	client := setupFirestoreClient(t)
	defer client.Close()

	store := NewFirestoreProgressStore(client)
	ctx := context.Background()

	_, err := store.Find(ctx, "nonexistent-student-12345", "nonexistent-course")
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFirestoreProgressStore_ListAndDelete(t *testing.T) {
	skipIfNoEmulator(t)
	client := setupFirestoreClient(t)
	defer client.Close()

	store := NewFirestoreProgressStore(client)
	ctx := context.Background()

	userID := "it-list-student-" + time.Now().Format("20060102150405")
	now := time.Now().UTC()
	for _, courseID := range []string{"c1", "c2", "c3"} {
		_, err := store.Upsert(ctx, &ProgressRecord{
			UserID:    userID,
			CourseID:  courseID,
			Progress:  10,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("Failed to upsert %s: %v", courseID, err)
		}
	}

	results, err := store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to list progress: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 records, got %d", len(results))
	}

	recent, err := store.ListByUserSince(ctx, userID, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Failed to list recent progress: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("Expected 3 recent records, got %d", len(recent))
	}

	deleted, err := store.DeleteByUser(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to delete progress: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted, got %d", deleted)
	}

	results, err = store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to list after delete: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no records after delete, got %d", len(results))
	}
}

// =============================================================================
// Pub/Sub Publisher Integration Tests
// =============================================================================

func TestPubSubPublisher_Publish(t *testing.T) {
	skipIfNoPubSubEmulator(t)
	client := setupPubSubClient(t)
	defer client.Close()

	publisher := NewPubSubPublisher(client)
	ctx := context.Background()

	err := publisher.Publish(ctx, "test-topic", []byte(`{"test": "data"}`))
	if err != nil {
		t.Fatalf("Failed to publish message: %v", err)
	}
}

func TestPubSubPublisher_CreateTopicIfNotExists(t *testing.T) {
	skipIfNoPubSubEmulator(t)
	client := setupPubSubClient(t)
	defer client.Close()

	publisher := NewPubSubPublisher(client)
	ctx := context.Background()

	uniqueTopic := "test-topic-" + time.Now().Format("20060102150405")
	err := publisher.Publish(ctx, uniqueTopic, []byte(`{"test": "new topic"}`))
	if err != nil {
		t.Fatalf("Failed to publish to new topic: %v", err)
	}

	topic := client.Topic(uniqueTopic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		t.Fatalf("Failed to check topic existence: %v", err)
	}
	if !exists {
		t.Error("Expected topic to exist after publishing")
	}
}
