package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/ingest"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Ingester defines the interface the events handler depends on.
type Ingester interface {
	Record(ctx context.Context, in ingest.Event) (*ingest.Result, error)
}

// NewEventsHandler returns an http.HandlerFunc for POST /api/v1/events.
func NewEventsHandler(svc Ingester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message   string            `json:"message"`
			Stack     string            `json:"stack"`
			Severity  string            `json:"severity"`
			Context   map[string]string `json:"context"`
			URL       string            `json:"url"`
			UserRef   string            `json:"user_ref"`
			Timestamp string            `json:"timestamp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Message == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "message is required", nil)
			return
		}
		if req.Severity != "" && !models.ValidSeverity(req.Severity) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"severity must be one of critical, error, warning, info", nil)
			return
		}

		var ts time.Time
		if req.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, req.Timestamp)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"timestamp must be a valid RFC3339 timestamp", nil)
				return
			}
			ts = parsed
		}

		result, err := svc.Record(r.Context(), ingest.Event{
			Message:   req.Message,
			Stack:     req.Stack,
			Severity:  req.Severity,
			Context:   req.Context,
			URL:       req.URL,
			UserRef:   req.UserRef,
			Timestamp: ts,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to record event", nil)
			return
		}

		response.Accepted(w, eventResponse{
			GroupID:  result.Group.ID.String(),
			NewGroup: result.NewGroup,
			EventID:  result.EventID.String(),
		})
	}
}

type eventResponse struct {
	GroupID  string `json:"group_id"`
	NewGroup bool   `json:"new_group"`
	EventID  string `json:"event_id"`
}
