package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

type fakeAlertStore struct {
	alerts     []*models.Alert
	lastFilter store.AlertFilter
}

func (s *fakeAlertStore) ListAlerts(_ context.Context, filter store.AlertFilter) ([]*models.Alert, int, error) {
	s.lastFilter = filter
	var out []*models.Alert
	for _, a := range s.alerts {
		if filter.RuleID != uuid.Nil && a.RuleID != filter.RuleID {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func TestListAlerts_FiltersByRule(t *testing.T) {
	ruleID := uuid.New()
	fake := &fakeAlertStore{alerts: []*models.Alert{
		{ID: uuid.New(), RuleID: ruleID, GroupID: uuid.New(), CreatedAt: time.Now(), Notified: true},
		{ID: uuid.New(), RuleID: uuid.New(), GroupID: uuid.New(), CreatedAt: time.Now(), Notified: false},
	}}
	h := NewListAlertsHandler(fake)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?rule_id="+ruleID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.lastFilter.RuleID != ruleID {
		t.Errorf("rule filter not applied: %v", fake.lastFilter.RuleID)
	}
}

func TestListAlerts_BadRuleID(t *testing.T) {
	h := NewListAlertsHandler(&fakeAlertStore{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?rule_id=nope", nil))

	code, _ := parseErr(t, rec)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestListAlerts_EmptyResult(t *testing.T) {
	h := NewListAlertsHandler(&fakeAlertStore{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"data":[]`) {
		t.Errorf("empty list should serialize as [], got %s", body)
	}
}
