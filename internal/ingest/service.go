// Package ingest records incoming error events into their incident groups.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/fingerprint"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Store is the subset of storage operations ingestion needs.
type Store interface {
	UpsertErrorGroup(ctx context.Context, group *models.ErrorGroup, reopenResolved bool) (*models.ErrorGroup, bool, error)
	CreateErrorEvent(ctx context.Context, event *models.ErrorEvent) error
}

// Event is a raw error report from the host application's capture utility.
// Context may carry a "fingerprint" field which is consumed verbatim, and a
// "name" field used as the representative error name.
type Event struct {
	Message   string
	Stack     string
	Severity  string
	Context   map[string]string
	URL       string
	UserRef   string
	Timestamp time.Time // zero means now
}

// Result reports where an event landed.
type Result struct {
	Group    *models.ErrorGroup
	NewGroup bool
	EventID  uuid.UUID
}

// Service is the grouping front end: fingerprint, atomic upsert, event insert.
type Service struct {
	store          Store
	reopenResolved bool
	now            func() time.Time
}

// NewService creates an ingestion service. reopenResolved controls whether a
// resolved group flips back to open when its error reoccurs.
func NewService(s Store, reopenResolved bool) *Service {
	return &Service{store: s, reopenResolved: reopenResolved, now: time.Now}
}

// Record fingerprints the event, upserts its group, and persists the event
// with the group back-reference. On storage failure the event is not recorded
// and the error is returned for the caller's retry/drop policy; this method
// never retries.
func (s *Service) Record(ctx context.Context, in Event) (*Result, error) {
	if in.Message == "" {
		return nil, fmt.Errorf("event message is required")
	}

	severity := in.Severity
	if severity == "" {
		severity = models.SeverityError
	}
	if !models.ValidSeverity(severity) {
		return nil, fmt.Errorf("invalid severity %q", severity)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	name := in.Context["name"]
	fp := fingerprint.FromEvent(name, in.Message, in.Stack, in.Context)

	group, created, err := s.store.UpsertErrorGroup(ctx, &models.ErrorGroup{
		ID:          uuid.New(),
		Fingerprint: fp,
		Name:        name,
		Message:     in.Message,
		Status:      models.GroupStatusOpen,
		FirstSeenAt: ts,
		LastSeenAt:  ts,
		Count:       1,
	}, s.reopenResolved)
	if err != nil {
		return nil, fmt.Errorf("upserting group: %w", err)
	}

	event := &models.ErrorEvent{
		ID:        uuid.New(),
		GroupID:   group.ID,
		Message:   in.Message,
		Severity:  severity,
		Context:   in.Context,
		CreatedAt: ts,
	}
	if in.Stack != "" {
		event.Stack = &in.Stack
	}
	if in.URL != "" {
		event.URL = &in.URL
	}
	if in.UserRef != "" {
		event.UserRef = &in.UserRef
	}

	if err := s.store.CreateErrorEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("recording event: %w", err)
	}

	return &Result{Group: group, NewGroup: created, EventID: event.ID}, nil
}
