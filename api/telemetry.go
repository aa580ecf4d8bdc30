package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EngagementEvent records a user interaction with a document section
type EngagementEvent struct {
	DocID     string `json:"docId"`
	SectionID string `json:"sectionId"`
	Event     string `json:"event"`
	Ms        int64  `json:"ms"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TrackEngagement accepts engagement events from document viewers.
// Events are logged for now; a later iteration could persist them.
func (h *Handler) TrackEngagement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var event EngagementEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05Z")
	}

	zap.L().Info("engagement event",
		zap.String("docId", event.DocID),
		zap.String("sectionId", event.SectionID),
		zap.String("event", event.Event),
		zap.Int64("ms", event.Ms),
		zap.String("timestamp", event.Timestamp))

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "recorded",
	})
}
