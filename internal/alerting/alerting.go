// Package alerting evaluates operator rules against open incidents and
// notifies through configured channels with cooldown deduplication.
package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Store is the subset of storage operations alerting needs. The storage
// layer is the single source of truth; nothing here is cached.
type Store interface {
	ListAlertRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error)
	ListOpenGroups(ctx context.Context) ([]*models.ErrorGroup, error)
	CountGroupEvents(ctx context.Context, groupID uuid.UUID, severity string, since time.Time) (int, error)
	ListUnseenGroups(ctx context.Context, ruleID uuid.UUID) ([]*models.ErrorGroup, error)
	MarkGroupSeen(ctx context.Context, ruleID, groupID uuid.UUID) (bool, error)
	HasRecentAlert(ctx context.Context, ruleID, groupID uuid.UUID, since time.Time) (bool, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
}

// Violation is one rule condition found true during an evaluation pass.
// Computing violations has no side effects; whether to notify is the
// guard's decision.
type Violation struct {
	Rule          *models.AlertRule
	Group         *models.ErrorGroup
	WindowCount   int
	TotalCount    int
	WindowMinutes int
	Message       string
}
