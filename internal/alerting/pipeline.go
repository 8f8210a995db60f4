package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kiranshivaraju/faultline/internal/cache"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// ErrRunInProgress is returned by Run when another evaluation pass is still
// executing. Callers skip, they never queue.
var ErrRunInProgress = errors.New("evaluation run already in progress")

// Pipeline runs one full evaluation pass: evaluate, dedup, dispatch.
// Failures local to one violation never block the rest of the batch; only a
// storage failure during evaluation aborts the run.
type Pipeline struct {
	store      Store
	evaluator  *Evaluator
	guard      *Guard
	dispatcher *Dispatcher
	cache      cache.Cache // advisory last-run marker, may be nil
	running    atomic.Bool
}

// RunStats summarizes one evaluation pass.
type RunStats struct {
	Violations int `json:"violations"`
	Notified   int `json:"notified"`
	Suppressed int `json:"suppressed"`
}

func NewPipeline(s Store, e *Evaluator, g *Guard, d *Dispatcher, c cache.Cache) *Pipeline {
	return &Pipeline{store: s, evaluator: e, guard: g, dispatcher: d, cache: c}
}

// Run executes one evaluation pass. At most one pass is active at a time,
// no matter who triggers it; a second caller gets ErrRunInProgress. Without
// this, two overlapping passes could both read the alert ledger before
// either writes its record and notify twice inside the cooldown. On
// evaluation failure the whole run is abandoned; the next trigger retries
// from a fresh snapshot.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	if !p.running.CompareAndSwap(false, true) {
		return RunStats{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	violations, err := p.evaluator.Evaluate(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("evaluation run: %w", err)
	}

	stats := RunStats{Violations: len(violations)}
	for _, v := range violations {
		ok, err := p.guard.ShouldNotify(ctx, v)
		if err != nil {
			// Isolated per violation: log and move on.
			slog.Error("dedup check failed",
				"rule_id", v.Rule.ID, "group_id", v.Group.ID, "error", err)
			continue
		}

		if ok {
			if p.dispatcher.Dispatch(ctx, v) {
				stats.Notified++
			}
		} else {
			stats.Suppressed++
		}

		// new_error fires once per (rule, group): record the observation
		// whether or not the notification went out.
		if v.Rule.ConditionType == models.ConditionNewError {
			if _, err := p.store.MarkGroupSeen(ctx, v.Rule.ID, v.Group.ID); err != nil {
				slog.Error("failed to mark group seen",
					"rule_id", v.Rule.ID, "group_id", v.Group.ID, "error", err)
			}
		}
	}

	if p.cache != nil {
		marker := []byte(time.Now().UTC().Format(time.RFC3339))
		if err := p.cache.Set(ctx, cache.LastEvalRunKey(), marker, 24*time.Hour); err != nil {
			slog.Warn("failed to record last evaluation marker", "error", err)
		}
	}

	return stats, nil
}
