package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// AlertStore defines the storage operations the alerts handler depends on.
type AlertStore interface {
	ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, int, error)
}

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
func NewListAlertsHandler(s AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var filter store.AlertFilter

		if raw := q.Get("rule_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "rule_id must be a UUID", nil)
				return
			}
			filter.RuleID = id
		}
		if raw := q.Get("group_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "group_id must be a UUID", nil)
				return
			}
			filter.GroupID = id
		}

		filter.Page, filter.Limit = parsePagination(q.Get("page"), q.Get("limit"))

		alerts, total, err := s.ListAlerts(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list alerts", nil)
			return
		}

		if alerts == nil {
			alerts = []*models.Alert{}
		}
		response.Collection(w, alerts, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}
