package alerting

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// RunFunc is one evaluation pass.
type RunFunc func(ctx context.Context) error

// Scheduler triggers evaluation runs on a fixed interval. Only one run is
// active at a time: a tick that fires while a run is still executing is
// skipped, not queued, so slow storage cannot pile runs up.
type Scheduler struct {
	interval time.Duration
	run      RunFunc
	running  atomic.Bool
}

func NewScheduler(interval time.Duration, run RunFunc) *Scheduler {
	return &Scheduler{interval: interval, run: run}
}

// Start launches the scheduling loop in a goroutine. It stops when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("evaluation scheduler started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				slog.Info("evaluation scheduler stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("previous evaluation run still active, skipping tick")
		return
	}

	go func() {
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in evaluation run", "error", r, "stack", string(debug.Stack()))
			}
		}()

		if err := s.run(ctx); err != nil {
			slog.Error("evaluation run failed", "error", err)
		}
	}()
}
