package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/edulearn/platform/services/progress-api/pkg/middleware"
)

// aiContent is the cached shape of AI-generated read paths.
type aiContent struct {
	StudentID   string    `json:"studentId"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// GetLearningPath handles GET /learning-path?studentId= - an AI-generated
// study path derived from the student's current progress. Cached under
// learningPath:<studentId> for an hour; concurrent misses trigger a
// single model call.
func (h *Handlers) GetLearningPath(w http.ResponseWriter, r *http.Request) {
	h.serveGenerated(w, r, learningPathKey, LearningPathCacheTTL, learningPathPrompt)
}

// GetRecommendations handles GET /recommendations?studentId= - AI course
// recommendations, cached under recommendations:<studentId>.
func (h *Handlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveGenerated(w, r, recommendationsKey, RecommendationsCacheTTL, recommendationsPrompt)
}

func (h *Handlers) serveGenerated(w http.ResponseWriter, r *http.Request, keyFunc func(string) string, ttl time.Duration, promptFunc func(string, []ProgressRecord) string) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	studentID, ok := h.studentIDParam(w, r)
	if !ok {
		return
	}

	key := keyFunc(studentID)
	payload, err := h.accessor.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		records, err := h.progressStore.ListByUser(ctx, studentID)
		if err != nil {
			return nil, fmt.Errorf("loading progress: %w", err)
		}

		text, err := h.completer.Complete(ctx, promptFunc(studentID, records))
		if err != nil {
			return nil, fmt.Errorf("generating content: %w", err)
		}

		return json.Marshal(aiContent{
			StudentID:   studentID,
			Content:     text,
			GeneratedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		h.logger.Error("failed to generate content",
			"request_id", reqID,
			"error", err,
			"user_id", studentID,
			"cache_key", key,
		)
		h.jsonError(w, "failed to generate content", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func progressSummary(records []ProgressRecord) string {
	if len(records) == 0 {
		return "no recorded progress yet"
	}
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		parts = append(parts, fmt.Sprintf("%s: %d%%", rec.CourseID, rec.Progress))
	}
	return strings.Join(parts, ", ")
}

func learningPathPrompt(studentID string, records []ProgressRecord) string {
	return fmt.Sprintf(
		"Create a personalized weekly learning path for a student with the following course progress: %s. "+
			"Suggest what to study next and how to pace it. Keep it under 200 words.",
		progressSummary(records),
	)
}

func recommendationsPrompt(studentID string, records []ProgressRecord) string {
	return fmt.Sprintf(
		"Recommend three courses for a student with the following course progress: %s. "+
			"For each, give a one-sentence reason. Keep it under 150 words.",
		progressSummary(records),
	)
}
