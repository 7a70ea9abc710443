package schedule

import (
	"context"
	"time"

	"github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/model"
)

// defaultResendInterval is used when an assignment carries no usable
// resend cadence.
const defaultResendInterval = time.Minute

// startResendLoop launches the deactivation retry loop for one
// assignment. The loop polls ignition at the assignment's resend
// cadence until it reads off, then dispatches the deactivation exactly
// once and terminates. Its lifetime is bounded by the next occurrence
// of the start trigger, less a safety margin, so a late "off" can never
// race the next "on" command.
func (s *Scheduler) startResendLoop(entry *armed, a model.ShiftAssignment, adj model.AdjustedWindow) {
	interval, err := ParseResendInterval(a.ResendInterval)
	if err != nil {
		s.log.Warnf("device %s: %v, using default resend interval", a.DeviceID, err)
		interval = defaultResendInterval
	}

	ctx, cancel := context.WithCancel(s.ctx)
	if next, err := NextAfter(adj.StartExpr, time.Now()); err == nil {
		ctx, cancel = context.WithDeadline(s.ctx, next.Add(-s.resendMargin))
	}

	s.mu.Lock()
	entry.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			entry.cancel = nil
			s.mu.Unlock()
			entry.state.rearm()
		}()
		s.runResendLoop(ctx, a, interval)
	}()
}

// runResendLoop is the loop body, separated so tests can drive it with
// their own context and cadence.
func (s *Scheduler) runResendLoop(ctx context.Context, a model.ShiftAssignment, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Infof("device %s: ignition still on at shift end, polling every %s", a.DeviceID, interval)
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				s.log.Warnf("device %s: resend loop reached next shift start without ignition off", a.DeviceID)
			}
			return
		case <-ticker.C:
			if rr, ok := s.sink.(metrics.ResendRecorder); ok {
				if err := rr.RecordResendPoll(a.DeviceID); err != nil {
					s.log.Errorf("metrics error: %v", err)
				}
			}
			callCtx, callCancel := context.WithTimeout(ctx, s.callTimeout)
			ign, err := s.platform.ReadIgnition(callCtx, a.DeviceID)
			callCancel()
			if err != nil {
				s.log.Errorf("device %s: ignition read failed in resend loop: %v", a.DeviceID, err)
				continue
			}
			if ign != model.IgnitionOff {
				continue
			}
			if err := s.sendCommand(a.DeviceID, a.CommandOff, "off"); err != nil {
				s.log.Errorf("device %s: deactivation dispatch failed after resend: %v", a.DeviceID, err)
			}
			return
		}
	}
}
