package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/edulearn/platform/services/progress-api/handlers"
	"github.com/edulearn/platform/services/progress-api/pkg/middleware"
)

// Request bodies are small JSON documents
const BodyLimit = 64 * 1024

// Rate limiting for the admin surface
const (
	AdminRateLimitWindow = 1 * time.Minute
	AdminRateLimitMax    = 10
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	projectID := os.Getenv("GCP_PROJECT")
	if projectID == "" {
		slog.Error("GCP_PROJECT environment variable is required")
		os.Exit(1)
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		slog.Error("OPENAI_API_KEY environment variable is required")
		os.Exit(1)
	}

	// Optional: admin endpoints stay disabled without it
	adminKeyHash := os.Getenv("ADMIN_KEY_HASH")

	// Web frontend origins (comma-separated)
	webOrigins := parseCommaSeparated(os.Getenv("WEB_CORS_ORIGINS"))

	ctx := context.Background()
	h, err := handlers.New(ctx, handlers.Config{
		ProjectID:    projectID,
		OpenAIKey:    openAIKey,
		AdminKeyHash: adminKeyHash,
	})
	if err != nil {
		slog.Error("failed to initialize handlers", "error", err)
		os.Exit(1)
	}
	defer h.Close()

	// Rate limiter for the admin surface (shared key, so brute force
	// protection matters)
	adminRateLimiter := middleware.NewRateLimiter(AdminRateLimitWindow, AdminRateLimitMax)
	defer adminRateLimiter.Close()
	adminLimit := middleware.RateLimit(adminRateLimiter, nil)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", h.Health)

	// Student/lecturer endpoints (Firebase ID token)
	mux.HandleFunc("POST /progress", h.AuthMiddleware(h.UpdateProgress))
	mux.HandleFunc("GET /progress", h.AuthMiddleware(h.GetProgress))
	mux.HandleFunc("GET /progress/course", h.AuthMiddleware(h.GetCourseProgress))
	mux.HandleFunc("GET /progress/weekly", h.AuthMiddleware(h.GetWeeklyProgress))
	mux.HandleFunc("GET /progress/stream", h.AuthMiddleware(h.StreamProgress))
	mux.HandleFunc("GET /learning-path", h.AuthMiddleware(h.GetLearningPath))
	mux.HandleFunc("GET /recommendations", h.AuthMiddleware(h.GetRecommendations))

	// Admin endpoints (bcrypt-verified admin key)
	mux.Handle("DELETE /admin/progress", adminLimit(http.HandlerFunc(h.AdminAuthMiddleware(h.ResetProgress))))
	mux.Handle("POST /admin/cache/flush", adminLimit(http.HandlerFunc(h.AdminAuthMiddleware(h.FlushCache))))

	// Middleware chain (first is outermost)
	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.SecurityHeaders,
		middleware.Recovery(logger),
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: webOrigins}),
		middleware.BodyLimit(BodyLimit),
		middleware.Logging(logger),
	)

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the SSE stream outlives any sane value.
		// Client disconnects and shutdown bound those connections.
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server",
		"port", port,
		"admin_enabled", adminKeyHash != "",
	)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// parseCommaSeparated splits a comma-separated string into a slice of trimmed strings.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
