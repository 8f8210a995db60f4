package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// fakeStore is an in-memory Store for evaluator/guard/pipeline tests.
type fakeStore struct {
	rules  []*models.AlertRule
	groups []*models.ErrorGroup
	events map[uuid.UUID][]*models.ErrorEvent
	alerts []*models.Alert
	marks  map[string]bool

	failListRules  error
	failListGroups error
	failCount      error
	failHasRecent  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: make(map[uuid.UUID][]*models.ErrorEvent),
		marks:  make(map[string]bool),
	}
}

func markKey(ruleID, groupID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", ruleID, groupID)
}

func (f *fakeStore) ListAlertRules(_ context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	if f.failListRules != nil {
		return nil, f.failListRules
	}
	var out []*models.AlertRule
	for _, r := range f.rules {
		if !activeOnly || r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOpenGroups(_ context.Context) ([]*models.ErrorGroup, error) {
	if f.failListGroups != nil {
		return nil, f.failListGroups
	}
	var out []*models.ErrorGroup
	for _, g := range f.groups {
		if g.Status == models.GroupStatusOpen {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) CountGroupEvents(_ context.Context, groupID uuid.UUID, severity string, since time.Time) (int, error) {
	if f.failCount != nil {
		return 0, f.failCount
	}
	n := 0
	for _, e := range f.events[groupID] {
		if severity != "" && e.Severity != severity {
			continue
		}
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListUnseenGroups(_ context.Context, ruleID uuid.UUID) ([]*models.ErrorGroup, error) {
	var out []*models.ErrorGroup
	for _, g := range f.groups {
		if !f.marks[markKey(ruleID, g.ID)] {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkGroupSeen(_ context.Context, ruleID, groupID uuid.UUID) (bool, error) {
	key := markKey(ruleID, groupID)
	if f.marks[key] {
		return false, nil
	}
	f.marks[key] = true
	return true, nil
}

func (f *fakeStore) HasRecentAlert(_ context.Context, ruleID, groupID uuid.UUID, since time.Time) (bool, error) {
	if f.failHasRecent != nil {
		return false, f.failHasRecent
	}
	for _, a := range f.alerts {
		if a.RuleID == ruleID && a.GroupID == groupID && a.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

// --- builders ---

func intptr(i int) *int       { return &i }
func strptr(s string) *string { return &s }

func thresholdRule(count, windowMin int) *models.AlertRule {
	return &models.AlertRule{
		ID:                uuid.New(),
		Name:              "db-timeouts",
		ConditionType:     models.ConditionThreshold,
		ThresholdCount:    intptr(count),
		TimeWindowMinutes: intptr(windowMin),
		Channel:           models.ChannelLog,
		Active:            true,
	}
}

func openGroup(message string, count int) *models.ErrorGroup {
	now := time.Now().UTC()
	return &models.ErrorGroup{
		ID:          uuid.New(),
		Fingerprint: uuid.NewString(),
		Message:     message,
		Status:      models.GroupStatusOpen,
		FirstSeenAt: now.Add(-time.Hour),
		LastSeenAt:  now,
		Count:       count,
	}
}

func (f *fakeStore) addEvents(groupID uuid.UUID, severity string, n int, at time.Time) {
	for i := 0; i < n; i++ {
		f.events[groupID] = append(f.events[groupID], &models.ErrorEvent{
			ID:        uuid.New(),
			GroupID:   groupID,
			Message:   "event",
			Severity:  severity,
			CreatedAt: at,
		})
	}
}
