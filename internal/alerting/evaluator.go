package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Evaluator computes rule violations against a storage snapshot. Evaluation
// is read-only; a storage failure aborts the whole pass so partial results
// are never acted upon.
type Evaluator struct {
	store            Store
	criticalLookback time.Duration
	now              func() time.Time
}

// NewEvaluator creates an evaluator. criticalLookback bounds how far back a
// critical-severity event still counts as "new"; it must cover at least one
// evaluation interval, and covering two keeps a skipped tick from dropping
// events that fell in its gap.
func NewEvaluator(s Store, criticalLookback time.Duration) *Evaluator {
	return &Evaluator{store: s, criticalLookback: criticalLookback, now: time.Now}
}

// Evaluate returns every violation currently held by an active rule.
// Windowed counts use the event's own created_at, so late-arriving events
// still count toward windows that include their timestamp.
func (e *Evaluator) Evaluate(ctx context.Context) ([]Violation, error) {
	rules, err := e.store.ListAlertRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	openGroups, err := e.store.ListOpenGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open groups: %w", err)
	}

	var violations []Violation
	for _, rule := range rules {
		switch rule.ConditionType {
		case models.ConditionThreshold:
			vs, err := e.evaluateThreshold(ctx, rule, openGroups)
			if err != nil {
				return nil, err
			}
			violations = append(violations, vs...)
		case models.ConditionNewError:
			vs, err := e.evaluateNewError(ctx, rule)
			if err != nil {
				return nil, err
			}
			violations = append(violations, vs...)
		case models.ConditionCritical:
			vs, err := e.evaluateCritical(ctx, rule, openGroups)
			if err != nil {
				return nil, err
			}
			violations = append(violations, vs...)
		}
	}
	return violations, nil
}

// evaluateThreshold fires for open groups whose event count inside the
// rule's window reaches the threshold. Resolved and ignored groups are
// excluded by the open-groups snapshot.
func (e *Evaluator) evaluateThreshold(ctx context.Context, rule *models.AlertRule, groups []*models.ErrorGroup) ([]Violation, error) {
	if rule.ThresholdCount == nil || rule.TimeWindowMinutes == nil {
		return nil, nil
	}
	since := e.now().Add(-rule.Window())

	var violations []Violation
	for _, g := range groups {
		n, err := e.store.CountGroupEvents(ctx, g.ID, "", since)
		if err != nil {
			return nil, fmt.Errorf("counting events for group %s: %w", g.ID, err)
		}
		if n >= *rule.ThresholdCount {
			violations = append(violations, Violation{
				Rule:          rule,
				Group:         g,
				WindowCount:   n,
				TotalCount:    g.Count,
				WindowMinutes: *rule.TimeWindowMinutes,
				Message: fmt.Sprintf("%d events in the last %d minutes for %q",
					n, *rule.TimeWindowMinutes, g.Message),
			})
		}
	}
	return violations, nil
}

// evaluateNewError fires for groups this rule has never observed. The
// observation mark is written by the pipeline after the violation is
// processed, keeping evaluation itself read-only.
func (e *Evaluator) evaluateNewError(ctx context.Context, rule *models.AlertRule) ([]Violation, error) {
	groups, err := e.store.ListUnseenGroups(ctx, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("listing unseen groups: %w", err)
	}

	var violations []Violation
	for _, g := range groups {
		violations = append(violations, Violation{
			Rule:        rule,
			Group:       g,
			WindowCount: g.Count,
			TotalCount:  g.Count,
			Message:     fmt.Sprintf("new error group %q (first seen %s)", g.Message, g.FirstSeenAt.Format(time.RFC3339)),
		})
	}
	return violations, nil
}

// evaluateCritical fires for open groups that gained a critical-severity
// event within the lookback window.
func (e *Evaluator) evaluateCritical(ctx context.Context, rule *models.AlertRule, groups []*models.ErrorGroup) ([]Violation, error) {
	since := e.now().Add(-e.criticalLookback)
	lookbackMin := int(e.criticalLookback.Minutes())

	var violations []Violation
	for _, g := range groups {
		n, err := e.store.CountGroupEvents(ctx, g.ID, models.SeverityCritical, since)
		if err != nil {
			return nil, fmt.Errorf("counting critical events for group %s: %w", g.ID, err)
		}
		if n > 0 {
			violations = append(violations, Violation{
				Rule:          rule,
				Group:         g,
				WindowCount:   n,
				TotalCount:    g.Count,
				WindowMinutes: lookbackMin,
				Message:       fmt.Sprintf("%d critical events for %q", n, g.Message),
			})
		}
	}
	return violations, nil
}
