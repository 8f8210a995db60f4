package alerting

import (
	"context"
	"fmt"
	"time"
)

// Guard suppresses re-notification for a (rule, group) pair within the
// cooldown window. The scope is deliberately rule+group, not global: the
// same incident may notify under two rules, and two incidents under one
// rule, independently.
type Guard struct {
	store    Store
	cooldown time.Duration
	now      func() time.Time
}

// NewGuard creates a dedup guard with the given cooldown.
func NewGuard(s Store, cooldown time.Duration) *Guard {
	return &Guard{store: s, cooldown: cooldown, now: time.Now}
}

// ShouldNotify reports whether the violation may produce a notification.
// Any recorded dispatch attempt inside the cooldown, successful or not,
// suppresses it. The check always reads storage; caches are not trusted
// for this decision.
func (g *Guard) ShouldNotify(ctx context.Context, v Violation) (bool, error) {
	since := g.now().Add(-g.cooldown)
	recent, err := g.store.HasRecentAlert(ctx, v.Rule.ID, v.Group.ID, since)
	if err != nil {
		return false, fmt.Errorf("checking alert ledger: %w", err)
	}
	return !recent, nil
}
