package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// GroupStore defines the storage operations the group handlers depend on.
type GroupStore interface {
	ListErrorGroups(ctx context.Context, filter store.GroupFilter) ([]*models.ErrorGroup, int, error)
	GetErrorGroup(ctx context.Context, id uuid.UUID) (*models.ErrorGroup, error)
	UpdateErrorGroupStatus(ctx context.Context, id uuid.UUID, status string) error
}

// NewListGroupsHandler returns an http.HandlerFunc for GET /api/v1/groups.
func NewListGroupsHandler(s GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := store.GroupFilter{Status: q.Get("status")}
		if filter.Status != "" && !models.ValidGroupStatus(filter.Status) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be one of open, resolved, ignored", nil)
			return
		}

		if since := q.Get("since"); since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"since must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.Since = parsed
		}

		filter.Page, filter.Limit = parsePagination(q.Get("page"), q.Get("limit"))

		groups, total, err := s.ListErrorGroups(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list groups", nil)
			return
		}

		if groups == nil {
			groups = []*models.ErrorGroup{}
		}
		response.Collection(w, groups, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetGroupHandler returns an http.HandlerFunc for GET /api/v1/groups/{groupID}.
func NewGetGroupHandler(s GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "groupID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "groupID must be a UUID", nil)
			return
		}

		group, err := s.GetErrorGroup(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Group not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch group", nil)
			return
		}

		response.JSON(w, group)
	}
}

// NewUpdateGroupStatusHandler returns an http.HandlerFunc for
// PATCH /api/v1/groups/{groupID}/status.
func NewUpdateGroupStatusHandler(s GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "groupID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "groupID must be a UUID", nil)
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if !models.ValidGroupStatus(req.Status) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be one of open, resolved, ignored", nil)
			return
		}

		err = s.UpdateErrorGroupStatus(r.Context(), id, req.Status)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Group not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to update group status", nil)
			return
		}

		group, err := s.GetErrorGroup(r.Context(), id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch group", nil)
			return
		}
		response.JSON(w, group)
	}
}

// parsePagination normalizes page/limit query parameters.
func parsePagination(pageStr, limitStr string) (int, int) {
	page := 1
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	limit := 20
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
		limit = l
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
