package handlers

import (
	"fmt"
	"net/http"

	"github.com/edulearn/platform/services/progress-api/pkg/middleware"
)

// StreamProgress handles GET /progress/stream - a server-sent-events
// feed of progress updates. Each connected viewer becomes a hub
// subscriber for the lifetime of the request; there is no replay, a
// viewer only sees updates broadcast while it is connected.
func (h *Handlers) StreamProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	if GetUserIDFromContext(ctx) == "" {
		h.jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sub := h.hub.Register()
	defer h.hub.Unregister(sub)

	h.logger.Info("stream opened",
		"request_id", reqID,
		"subscriber_id", sub.ID,
	)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("stream closed",
				"request_id", reqID,
				"subscriber_id", sub.ID,
			)
			return
		case payload, ok := <-sub.Events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				// This viewer's connection broke; the others are
				// unaffected.
				h.logger.Warn("stream write failed",
					"request_id", reqID,
					"subscriber_id", sub.ID,
					"error", err,
				)
				return
			}
			flusher.Flush()
		}
	}
}
