package handlers

import (
	"fmt"
	"net/http"

	"github.com/edulearn/platform/services/progress-api/pkg/middleware"
	"github.com/edulearn/platform/services/progress-api/pkg/validate"
)

// ResetProgress handles DELETE /admin/progress?studentId= - removes all
// of a student's progress records and the cache entries reachable from
// them. Invalidation happens after the delete commits so a read racing
// the reset cannot re-observe stale entries as fresh.
func (h *Handlers) ResetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		h.jsonError(w, "studentId is required", http.StatusBadRequest)
		return
	}
	if err := validate.Identifier(studentID); err != nil {
		h.jsonError(w, fmt.Sprintf("invalid studentId: %v", err), http.StatusBadRequest)
		return
	}

	// Collect the per-pair cache keys before the records disappear.
	records, err := h.progressStore.ListByUser(ctx, studentID)
	if err != nil {
		h.logger.Error("failed to list progress for reset",
			"request_id", reqID,
			"error", err,
			"user_id", studentID,
		)
		h.jsonError(w, "failed to reset progress", http.StatusInternalServerError)
		return
	}

	deleted, err := h.progressStore.DeleteByUser(ctx, studentID)
	if err != nil {
		h.logger.Error("failed to delete progress",
			"request_id", reqID,
			"error", err,
			"user_id", studentID,
		)
		h.jsonError(w, "failed to reset progress", http.StatusInternalServerError)
		return
	}

	keys := []string{learningPathKey(studentID), recommendationsKey(studentID)}
	for _, rec := range records {
		keys = append(keys, progressKey(rec.UserID, rec.CourseID))
	}
	h.accessor.Invalidate(keys...)

	h.logger.Info("progress reset",
		"request_id", reqID,
		"user_id", studentID,
		"deleted", deleted,
	)
	h.jsonResponse(w, map[string]interface{}{"deleted": deleted}, http.StatusOK)
}

// FlushCache handles POST /admin/cache/flush - empties the whole cache.
// Full resets only; reads repopulate on demand.
func (h *Handlers) FlushCache(w http.ResponseWriter, r *http.Request) {
	h.cacheStore.FlushAll()

	h.logger.Info("cache flushed",
		"request_id", middleware.GetRequestID(r.Context()),
	)
	h.jsonResponse(w, map[string]string{"status": "flushed"}, http.StatusOK)
}
