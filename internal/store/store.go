package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
// The storage layer is the single source of truth for group state.
type Store interface {
	Ping(ctx context.Context) error

	// UpsertErrorGroup is the atomic increment-or-create keyed by fingerprint.
	// The whole operation is a single conditional upsert, never read-then-write.
	// reopenResolved controls the resolved->open transition on reoccurrence;
	// ignored groups keep their status regardless. The bool result reports
	// whether a new group was created.
	UpsertErrorGroup(ctx context.Context, group *models.ErrorGroup, reopenResolved bool) (*models.ErrorGroup, bool, error)
	GetErrorGroup(ctx context.Context, id uuid.UUID) (*models.ErrorGroup, error)
	ListErrorGroups(ctx context.Context, filter GroupFilter) ([]*models.ErrorGroup, int, error)
	ListOpenGroups(ctx context.Context) ([]*models.ErrorGroup, error)
	UpdateErrorGroupStatus(ctx context.Context, id uuid.UUID, status string) error

	CreateErrorEvent(ctx context.Context, event *models.ErrorEvent) error
	// CountGroupEvents counts events for a group with created_at >= since,
	// using the event's own timestamp so late arrivals count toward the
	// windows that include them. Empty severity matches all severities.
	CountGroupEvents(ctx context.Context, groupID uuid.UUID, severity string, since time.Time) (int, error)

	CreateAlertRule(ctx context.Context, rule *models.AlertRule) error
	GetAlertRule(ctx context.Context, id uuid.UUID) (*models.AlertRule, error)
	ListAlertRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error)
	UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error
	DeactivateAlertRule(ctx context.Context, id uuid.UUID) error

	CreateAlert(ctx context.Context, alert *models.Alert) error
	// HasRecentAlert reports whether any dispatch attempt for (rule, group)
	// was recorded after since. This is the dedup ledger query.
	HasRecentAlert(ctx context.Context, ruleID, groupID uuid.UUID, since time.Time) (bool, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, int, error)

	// ListUnseenGroups returns groups the given rule has never marked as
	// observed. MarkGroupSeen records the observation; it reports true only
	// for the first caller (atomic insert-if-absent).
	ListUnseenGroups(ctx context.Context, ruleID uuid.UUID) ([]*models.ErrorGroup, error)
	MarkGroupSeen(ctx context.Context, ruleID, groupID uuid.UUID) (bool, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

type GroupFilter struct {
	Status string
	Since  time.Time // last_seen_at >= Since
	Page   int
	Limit  int
}

type AlertFilter struct {
	RuleID  uuid.UUID
	GroupID uuid.UUID
	Page    int
	Limit   int
}
