package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/edulearn/platform/services/progress-api/pkg/middleware"
	"github.com/edulearn/platform/services/progress-api/pkg/validate"
)

// UpdateProgressRequest is the body of POST /progress.
type UpdateProgressRequest struct {
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
	ModuleID string `json:"moduleId,omitempty"`
	QuizID   string `json:"quizId,omitempty"`
	Progress int    `json:"progress"`
}

// clampProgress truncates a progress report into [0, 100]. Applied on
// every write path, not only cache writes.
func clampProgress(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// UpdateProgress handles POST /progress. The update runs through the
// per-key lock for its (user, course) pair: persist, cache, broadcast,
// in that order, so two updates to the same pair are fully ordered and
// viewers never see that pair's progress move backward. Updates to
// different pairs proceed independently.
func (h *Handlers) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		h.jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Students report their own progress; lecturers may report for a
	// student by setting userId explicitly.
	if req.UserID == "" {
		req.UserID = userID
	}
	if req.CourseID == "" {
		h.jsonError(w, "courseId is required", http.StatusBadRequest)
		return
	}
	if err := validate.Identifier(req.UserID); err != nil {
		h.jsonError(w, fmt.Sprintf("invalid userId: %v", err), http.StatusBadRequest)
		return
	}
	if err := validate.Identifier(req.CourseID); err != nil {
		h.jsonError(w, fmt.Sprintf("invalid courseId: %v", err), http.StatusBadRequest)
		return
	}
	if req.ModuleID != "" {
		if err := validate.Identifier(req.ModuleID); err != nil {
			h.jsonError(w, fmt.Sprintf("invalid moduleId: %v", err), http.StatusBadRequest)
			return
		}
	}
	if err := validate.Progress(req.Progress); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.applyProgressUpdate(ctx, &req)
	if err != nil {
		h.logger.Error("failed to update progress",
			"request_id", reqID,
			"error", err,
			"user_id", req.UserID,
			"course_id", req.CourseID,
		)
		h.jsonError(w, "failed to update progress", http.StatusInternalServerError)
		return
	}

	// The progress change invalidates AI content derived from it.
	h.accessor.Invalidate(learningPathKey(req.UserID), recommendationsKey(req.UserID))

	// Best-effort event for downstream services; the update already
	// committed, so a publish failure is logged and swallowed.
	if err := h.publishProgress(ctx, rec); err != nil {
		h.logger.Error("failed to publish progress event",
			"request_id", reqID,
			"error", err,
			"user_id", rec.UserID,
			"course_id", rec.CourseID,
		)
	}

	h.jsonResponse(w, rec, http.StatusOK)
}

// applyProgressUpdate runs the serialized section of the pipeline:
// upsert, cache, broadcast under the pair's key lock. On a persistence
// error the lock is released with nothing cached or broadcast.
func (h *Handlers) applyProgressUpdate(ctx context.Context, req *UpdateProgressRequest) (*ProgressRecord, error) {
	now := time.Now().UTC()
	rec := &ProgressRecord{
		UserID:    req.UserID,
		CourseID:  req.CourseID,
		Progress:  clampProgress(req.Progress),
		ModuleID:  req.ModuleID,
		QuizID:    req.QuizID,
		Week:      weekOfMonth(now),
		UpdatedAt: now,
	}

	key := progressKey(req.UserID, req.CourseID)
	var committed *ProgressRecord
	err := h.keyLocks.Do(key, func() error {
		upsertCtx, cancel := context.WithTimeout(ctx, UpsertTimeout)
		defer cancel()

		out, err := h.progressStore.Upsert(upsertCtx, rec)
		if err != nil {
			return fmt.Errorf("upsert failed: %w", err)
		}

		payload, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		if err := h.cacheStore.SetEx(key, ProgressCacheTTL, payload); err != nil {
			return err
		}

		// Broadcast inside the critical section: the hub's sends never
		// block, and this is what keeps per-pair fan-out in commit order.
		h.hub.Broadcast(payload)

		committed = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (h *Handlers) publishProgress(ctx context.Context, rec *ProgressRecord) error {
	if h.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := h.publisher.Publish(ctx, ProgressTopic, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", ProgressTopic, err)
	}
	return nil
}

// GetProgress handles GET /progress?studentId= - all progress for a
// student, straight from the store.
func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	studentID, ok := h.studentIDParam(w, r)
	if !ok {
		return
	}

	results, err := h.progressStore.ListByUser(ctx, studentID)
	if err != nil {
		h.logger.Error("failed to list progress",
			"request_id", reqID,
			"error", err,
			"user_id", studentID,
		)
		h.jsonError(w, "failed to fetch student progress", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"data":  results,
		"count": len(results),
	}, http.StatusOK)
}

// GetCourseProgress handles GET /progress/course?studentId=&courseId= -
// a single (user, course) pair through the cache-aside read path.
func (h *Handlers) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	studentID, ok := h.studentIDParam(w, r)
	if !ok {
		return
	}
	courseID := r.URL.Query().Get("courseId")
	if courseID == "" {
		h.jsonError(w, "courseId is required", http.StatusBadRequest)
		return
	}
	if err := validate.Identifier(courseID); err != nil {
		h.jsonError(w, fmt.Sprintf("invalid courseId: %v", err), http.StatusBadRequest)
		return
	}

	key := progressKey(studentID, courseID)
	payload, err := h.accessor.GetOrCompute(ctx, key, ProgressCacheTTL, func(ctx context.Context) ([]byte, error) {
		rec, err := h.progressStore.Find(ctx, studentID, courseID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	})
	if err != nil {
		if err == ErrNotFound {
			h.jsonError(w, "progress not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch course progress",
			"request_id", reqID,
			"error", err,
			"user_id", studentID,
			"course_id", courseID,
		)
		h.jsonError(w, "failed to fetch course progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// WeeklyProgress is one aggregated bucket of GetWeeklyProgress.
type WeeklyProgress struct {
	Week     string           `json:"week"`
	Progress float64          `json:"progress"`
	Courses  []CourseProgress `json:"courses"`
}

// CourseProgress is a per-course slice of a weekly bucket.
type CourseProgress struct {
	CourseID string `json:"courseId"`
	Progress int    `json:"progress"`
}

// weeklyWindow is how far back GetWeeklyProgress looks.
const weeklyWindow = 28 * 24 * time.Hour

// GetWeeklyProgress handles GET /progress/weekly?studentId= - the last
// four weeks of records bucketed by ISO week with the average progress
// per bucket.
func (h *Handlers) GetWeeklyProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	studentID, ok := h.studentIDParam(w, r)
	if !ok {
		return
	}

	since := time.Now().UTC().Add(-weeklyWindow)
	records, err := h.progressStore.ListByUserSince(ctx, studentID, since)
	if err != nil {
		h.logger.Error("failed to list weekly progress",
			"request_id", reqID,
			"error", err,
			"user_id", studentID,
		)
		h.jsonError(w, "failed to fetch weekly progress", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"weeklyProgress": bucketByWeek(records),
	}, http.StatusOK)
}

// bucketByWeek groups records into ISO-week buckets sorted ascending.
func bucketByWeek(records []ProgressRecord) []WeeklyProgress {
	buckets := make(map[string][]ProgressRecord)
	for _, rec := range records {
		year, week := rec.CreatedAt.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		buckets[key] = append(buckets[key], rec)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]WeeklyProgress, 0, len(keys))
	for _, key := range keys {
		entries := buckets[key]
		sum := 0
		courses := make([]CourseProgress, 0, len(entries))
		for _, e := range entries {
			sum += e.Progress
			courses = append(courses, CourseProgress{CourseID: e.CourseID, Progress: e.Progress})
		}
		result = append(result, WeeklyProgress{
			Week:     key,
			Progress: float64(sum) / float64(len(entries)),
			Courses:  courses,
		})
	}
	return result
}

// studentIDParam validates the studentId query parameter common to the
// read paths. Writes the error response itself when invalid.
func (h *Handlers) studentIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if GetUserIDFromContext(r.Context()) == "" {
		h.jsonError(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}

	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		h.jsonError(w, "studentId is required", http.StatusBadRequest)
		return "", false
	}
	if err := validate.Identifier(studentID); err != nil {
		h.jsonError(w, fmt.Sprintf("invalid studentId: %v", err), http.StatusBadRequest)
		return "", false
	}
	return studentID, true
}
