package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/api"
	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/cache"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub store that returns empty results (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }
func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *stubStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error)   { return nil, nil }
func (s *stubStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error         { return nil }
func (s *stubStore) UpsertErrorGroup(_ context.Context, g *models.ErrorGroup, _ bool) (*models.ErrorGroup, bool, error) {
	return g, true, nil
}
func (s *stubStore) GetErrorGroup(_ context.Context, _ uuid.UUID) (*models.ErrorGroup, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) ListErrorGroups(_ context.Context, _ store.GroupFilter) ([]*models.ErrorGroup, int, error) {
	return nil, 0, nil
}
func (s *stubStore) ListOpenGroups(_ context.Context) ([]*models.ErrorGroup, error) {
	return nil, nil
}
func (s *stubStore) UpdateErrorGroupStatus(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}
func (s *stubStore) CreateErrorEvent(_ context.Context, _ *models.ErrorEvent) error { return nil }
func (s *stubStore) CountGroupEvents(_ context.Context, _ uuid.UUID, _ string, _ time.Time) (int, error) {
	return 0, nil
}
func (s *stubStore) CreateAlertRule(_ context.Context, _ *models.AlertRule) error { return nil }
func (s *stubStore) GetAlertRule(_ context.Context, _ uuid.UUID) (*models.AlertRule, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) ListAlertRules(_ context.Context, _ bool) ([]*models.AlertRule, error) {
	return nil, nil
}
func (s *stubStore) UpdateAlertRule(_ context.Context, _ *models.AlertRule) error { return nil }
func (s *stubStore) DeactivateAlertRule(_ context.Context, _ uuid.UUID) error     { return nil }
func (s *stubStore) CreateAlert(_ context.Context, _ *models.Alert) error         { return nil }
func (s *stubStore) HasRecentAlert(_ context.Context, _, _ uuid.UUID, _ time.Time) (bool, error) {
	return false, nil
}
func (s *stubStore) ListAlerts(_ context.Context, _ store.AlertFilter) ([]*models.Alert, int, error) {
	return nil, 0, nil
}
func (s *stubStore) ListUnseenGroups(_ context.Context, _ uuid.UUID) ([]*models.ErrorGroup, error) {
	return nil, nil
}
func (s *stubStore) MarkGroupSeen(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return true, nil
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubStore{}),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/events"},
		{"GET", "/api/v1/groups"},
		{"PATCH", "/api/v1/groups/" + uuid.NewString() + "/status"},
		{"GET", "/api/v1/rules"},
		{"POST", "/api/v1/rules"},
		{"GET", "/api/v1/alerts"},
		{"POST", "/api/v1/evaluate"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify stubs satisfy the real interfaces
var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
