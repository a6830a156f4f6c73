package handlers

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/edulearn/platform/services/progress-api/pkg/middleware"
)

type contextKey string

const userIDKey contextKey = "user_id"

// GetUserIDFromContext extracts the authenticated user ID from the
// request context. Empty means unauthenticated.
func GetUserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(userIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer <t>"
// header, or returns "".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AuthMiddleware verifies Firebase ID tokens on student/lecturer routes
// and stores the user ID in the request context.
func (h *Handlers) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.jsonError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		info, err := h.authService.VerifyToken(r.Context(), token)
		if err != nil {
			h.logger.Warn("token verification failed",
				"request_id", middleware.GetRequestID(r.Context()),
				"error", err,
			)
			h.jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, info.UserID)
		next(w, r.WithContext(ctx))
	}
}

// AdminAuthMiddleware guards administrative endpoints with a shared
// admin key, verified against the bcrypt hash from configuration. Admin
// access is disabled entirely when no hash is configured.
func (h *Handlers) AdminAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.config.AdminKeyHash == "" {
			h.jsonError(w, "admin access disabled", http.StatusForbidden)
			return
		}

		key := bearerToken(r)
		if key == "" {
			h.jsonError(w, "missing admin key", http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(h.config.AdminKeyHash), []byte(key)); err != nil {
			h.logger.Warn("admin key rejected",
				"request_id", middleware.GetRequestID(r.Context()),
			)
			h.jsonError(w, "invalid admin key", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
