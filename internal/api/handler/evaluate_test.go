package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/faultline/internal/alerting"
)

type mockRunner struct {
	stats alerting.RunStats
	err   error
}

func (m *mockRunner) Run(_ context.Context) (alerting.RunStats, error) {
	return m.stats, m.err
}

func TestEvaluateHandler_ReturnsStats(t *testing.T) {
	h := NewEvaluateHandler(&mockRunner{stats: alerting.RunStats{
		Violations: 3, Notified: 2, Suppressed: 1,
	}})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", nil))

	data := parseData(t, rec, http.StatusOK)
	if data["violations"] != float64(3) {
		t.Errorf("unexpected violations: %v", data["violations"])
	}
	if data["notified"] != float64(2) {
		t.Errorf("unexpected notified: %v", data["notified"])
	}
	if data["suppressed"] != float64(1) {
		t.Errorf("unexpected suppressed: %v", data["suppressed"])
	}
}

func TestEvaluateHandler_RunAlreadyInProgress(t *testing.T) {
	h := NewEvaluateHandler(&mockRunner{err: alerting.ErrRunInProgress})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", nil))

	code, errCode := parseErr(t, rec)
	if code != http.StatusConflict || errCode != "EVALUATION_IN_PROGRESS" {
		t.Errorf("expected 409 EVALUATION_IN_PROGRESS, got %d %s", code, errCode)
	}
}

func TestEvaluateHandler_RunFailure(t *testing.T) {
	h := NewEvaluateHandler(&mockRunner{err: errors.New("snapshot failed")})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", nil))

	code, errCode := parseErr(t, rec)
	if code != http.StatusInternalServerError || errCode != "EVALUATION_FAILED" {
		t.Errorf("expected 500 EVALUATION_FAILED, got %d %s", code, errCode)
	}
}
