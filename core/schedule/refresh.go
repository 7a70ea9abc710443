package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetops/shiftd/core/logger"
)

// Refresher rebuilds the scheduler's trigger set from the current
// assignment snapshot. It runs on configuration changes (Notify) and on
// a fixed cadence as a safety net against drift or missed updates.
type Refresher struct {
	source   Source
	sched    *Scheduler
	interval time.Duration
	log      logger.Logger

	mu   sync.Mutex // serializes overlapping refresh requests
	kick chan struct{}
}

// NewRefresher creates a Refresher with the given safety-net cadence.
func NewRefresher(source Source, sched *Scheduler, interval time.Duration, log logger.Logger) *Refresher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Refresher{
		source:   source,
		sched:    sched,
		interval: interval,
		log:      log,
		kick:     make(chan struct{}, 1),
	}
}

// Refresh fetches the full assignment list and rearms the scheduler.
// Concurrent calls are serialized; the armed state after two successive
// refreshes of unchanged configuration is equivalent, never duplicated.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	assignments, err := r.source.Assignments(ctx)
	if err != nil {
		return fmt.Errorf("fetch assignments: %w", err)
	}
	r.sched.Rearm(assignments)
	return nil
}

// Notify requests an asynchronous refresh after a configuration change.
// Multiple notifications before the refresh runs coalesce into one.
func (r *Refresher) Notify() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run performs an initial refresh and then serves the safety-net ticker
// and change notifications until the context is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.log.Errorf("initial refresh failed: %v", err)
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.log.Errorf("scheduled refresh failed: %v", err)
			}
		case <-r.kick:
			if err := r.Refresh(ctx); err != nil {
				r.log.Errorf("refresh failed: %v", err)
			}
		}
	}
}
