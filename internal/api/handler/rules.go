package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// RuleStore defines the storage operations the rule handlers depend on.
type RuleStore interface {
	CreateAlertRule(ctx context.Context, rule *models.AlertRule) error
	GetAlertRule(ctx context.Context, id uuid.UUID) (*models.AlertRule, error)
	ListAlertRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error)
	UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error
	DeactivateAlertRule(ctx context.Context, id uuid.UUID) error
}

type ruleRequest struct {
	Name              *string `json:"name"`
	ConditionType     *string `json:"condition_type"`
	ThresholdCount    *int    `json:"threshold_count"`
	TimeWindowMinutes *int    `json:"time_window_minutes"`
	Channel           *string `json:"channel"`
	ChannelWebhookURL *string `json:"channel_webhook_url"`
	Active            *bool   `json:"active"`
}

// NewCreateRuleHandler returns an http.HandlerFunc for POST /api/v1/rules.
func NewCreateRuleHandler(s RuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ruleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		now := time.Now().UTC()
		rule := &models.AlertRule{
			ID:                uuid.New(),
			ThresholdCount:    req.ThresholdCount,
			TimeWindowMinutes: req.TimeWindowMinutes,
			ChannelWebhookURL: req.ChannelWebhookURL,
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if req.Name != nil {
			rule.Name = *req.Name
		}
		if req.ConditionType != nil {
			rule.ConditionType = *req.ConditionType
		}
		if req.Channel != nil {
			rule.Channel = *req.Channel
		}
		if req.Active != nil {
			rule.Active = *req.Active
		}

		if err := rule.Validate(); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}

		if err := s.CreateAlertRule(r.Context(), rule); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_RESOURCE", "Rule already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create rule", nil)
			return
		}

		response.Created(w, rule)
	}
}

// NewGetRuleHandler returns an http.HandlerFunc for GET /api/v1/rules/{ruleID}.
func NewGetRuleHandler(s RuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "ruleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ruleID must be a UUID", nil)
			return
		}

		rule, err := s.GetAlertRule(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Rule not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch rule", nil)
			return
		}

		response.JSON(w, rule)
	}
}

// NewListRulesHandler returns an http.HandlerFunc for GET /api/v1/rules.
func NewListRulesHandler(s RuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active") == "true"

		rules, err := s.ListAlertRules(r.Context(), activeOnly)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list rules", nil)
			return
		}

		if rules == nil {
			rules = []*models.AlertRule{}
		}
		response.JSON(w, rules)
	}
}

// NewUpdateRuleHandler returns an http.HandlerFunc for PATCH /api/v1/rules/{ruleID}.
// Absent fields keep their current values; the merged rule is re-validated.
func NewUpdateRuleHandler(s RuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "ruleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ruleID must be a UUID", nil)
			return
		}

		var req ruleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		rule, err := s.GetAlertRule(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Rule not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch rule", nil)
			return
		}

		if req.Name != nil {
			rule.Name = *req.Name
		}
		if req.ConditionType != nil {
			rule.ConditionType = *req.ConditionType
		}
		if req.ThresholdCount != nil {
			rule.ThresholdCount = req.ThresholdCount
		}
		if req.TimeWindowMinutes != nil {
			rule.TimeWindowMinutes = req.TimeWindowMinutes
		}
		if req.Channel != nil {
			rule.Channel = *req.Channel
		}
		if req.ChannelWebhookURL != nil {
			rule.ChannelWebhookURL = req.ChannelWebhookURL
		}
		if req.Active != nil {
			rule.Active = *req.Active
		}

		if err := rule.Validate(); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}

		if err := s.UpdateAlertRule(r.Context(), rule); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_RESOURCE",
					"A rule with that name already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to update rule", nil)
			return
		}

		response.JSON(w, rule)
	}
}

// NewDeleteRuleHandler returns an http.HandlerFunc for DELETE /api/v1/rules/{ruleID}.
// Rules are deactivated, not removed; their alert history stays intact.
func NewDeleteRuleHandler(s RuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "ruleID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ruleID must be a UUID", nil)
			return
		}

		err = s.DeactivateAlertRule(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Rule not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to deactivate rule", nil)
			return
		}

		response.NoContent(w)
	}
}
