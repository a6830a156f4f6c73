package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/edulearn/platform/services/progress-api/pkg/broadcast"
	"github.com/edulearn/platform/services/progress-api/pkg/cache"
)

// Cache TTLs
const (
	// Progress entries are refreshed on every update, so an hour bounds
	// staleness only for entries written by the read path.
	ProgressCacheTTL = 1 * time.Hour
	// AI-generated content is expensive to recompute; one hour matches
	// how often the underlying progress data meaningfully changes.
	LearningPathCacheTTL    = 1 * time.Hour
	RecommendationsCacheTTL = 1 * time.Hour
)

// UpsertTimeout bounds the persistence call inside the update pipeline
// so the per-key lock is never held across an unbounded wait.
const UpsertTimeout = 10 * time.Second

// Collections and topics
const (
	ProgressCollection = "progress"
	ProgressTopic      = "progress-events"
)

// Config holds handler configuration.
type Config struct {
	ProjectID string
	OpenAIKey string
	// AdminKeyHash is the bcrypt hash of the admin API key.
	AdminKeyHash string
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	config        Config
	progressStore ProgressStore
	completer     Completer
	publisher     EventPublisher
	authService   AuthService
	logger        *slog.Logger

	cacheStore *cache.Store
	keyLocks   *cache.KeyLock
	accessor   *cache.Accessor
	hub        *broadcast.Hub

	// Keep references for cleanup
	firestoreClient *firestore.Client
	pubsubClient    *pubsub.Client
}

// New creates a Handlers instance with initialized clients.
func New(ctx context.Context, cfg Config) (*Handlers, error) {
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		fsClient.Close()
		return nil, err
	}

	authService, err := NewFirebaseAuthService(ctx, cfg.ProjectID)
	if err != nil {
		fsClient.Close()
		psClient.Close()
		return nil, err
	}

	logger := slog.Default()
	store := cache.NewStore()
	locks := cache.NewKeyLock()

	return &Handlers{
		config:          cfg,
		progressStore:   NewFirestoreProgressStore(fsClient),
		completer:       NewOpenAICompleter(cfg.OpenAIKey),
		publisher:       NewPubSubPublisher(psClient),
		authService:     authService,
		logger:          logger,
		cacheStore:      store,
		keyLocks:        locks,
		accessor:        cache.NewAccessor(store, locks),
		hub:             broadcast.NewHub(logger),
		firestoreClient: fsClient,
		pubsubClient:    psClient,
	}, nil
}

// NewWithStores creates handlers with custom collaborators (for testing).
func NewWithStores(progress ProgressStore, completer Completer, publisher EventPublisher, auth AuthService, hub *broadcast.Hub) *Handlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if hub == nil {
		hub = broadcast.NewHub(logger)
	}
	store := cache.NewStore()
	locks := cache.NewKeyLock()

	return &Handlers{
		progressStore: progress,
		completer:     completer,
		publisher:     publisher,
		authService:   auth,
		logger:        logger,
		cacheStore:    store,
		keyLocks:      locks,
		accessor:      cache.NewAccessor(store, locks),
		hub:           hub,
	}
}

// Hub exposes the broadcast hub for the stream route and for main.
func (h *Handlers) Hub() *broadcast.Hub {
	return h.hub
}

// Close cleans up handler resources.
func (h *Handlers) Close() error {
	if h.firestoreClient != nil {
		h.firestoreClient.Close()
	}
	if h.pubsubClient != nil {
		h.pubsubClient.Close()
	}
	return nil
}

// Cache key naming shared with every caller: "<domain>:<entityId>".
func progressKey(userID, courseID string) string {
	return "progress:" + userID + ":" + courseID
}

func learningPathKey(userID string) string {
	return "learningPath:" + userID
}

func recommendationsKey(userID string) string {
	return "recommendations:" + userID
}

// Health returns service health status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// Helper functions

func (h *Handlers) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]string{"error": message}, status)
}
