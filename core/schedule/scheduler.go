package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/fleetops/shiftd/core/logger"
	"github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/model"
	"github.com/fleetops/shiftd/core/platform"
)

// armed pairs an assignment with its adjusted window for one scheduling
// pass. Rebuilt wholesale on every refresh.
type armed struct {
	assignment model.ShiftAssignment
	window     model.AdjustedWindow
	state      *assignmentState
	cancel     context.CancelFunc // resend loop, nil when none running
}

// Scheduler owns exactly one start trigger and one end trigger per
// active shift assignment. Start firings dispatch the activation
// command fire-and-forget; end firings evaluate ignition and either
// deactivate immediately or hand off to a resend loop.
type Scheduler struct {
	runner   *Runner
	platform platform.Client
	log      logger.Logger
	sink     metrics.Sink

	callTimeout  time.Duration
	resendMargin time.Duration

	ctx context.Context
	mu  sync.Mutex
	set map[string]*armed // keyed by device ID
}

// NewScheduler creates a Scheduler. Resend loops and trigger firings
// stop when ctx is cancelled. A nil sink disables metrics.
func NewScheduler(ctx context.Context, runner *Runner, client platform.Client, cfg Config, log logger.Logger, sink metrics.Sink) *Scheduler {
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Scheduler{
		runner:       runner,
		platform:     client,
		log:          log,
		sink:         sink,
		callTimeout:  cfg.CallTimeout(),
		resendMargin: cfg.ResendMargin(),
		ctx:          ctx,
		set:          make(map[string]*armed),
	}
}

// Rearm replaces the whole armed set from an assignment snapshot. All
// running resend loops are cancelled first, then one start/end trigger
// pair per assignment is armed atomically on the runner. Calling Rearm
// twice with the same snapshot yields an equivalent armed state.
func (s *Scheduler) Rearm(assignments []model.ShiftAssignment) {
	s.mu.Lock()
	for _, a := range s.set {
		if a.cancel != nil {
			a.cancel()
		}
	}
	s.set = make(map[string]*armed, len(assignments))

	triggers := make([]Trigger, 0, 2*len(assignments))
	for _, a := range assignments {
		adj := AdjustWindow(a.Shift)
		entry := &armed{assignment: a, window: adj, state: &assignmentState{}}
		s.set[a.DeviceID] = entry

		a := a
		triggers = append(triggers,
			Trigger{ID: a.DeviceID + "/start", Expr: adj.StartExpr, Fire: func() { s.fireStart(a) }},
			Trigger{ID: a.DeviceID + "/end", Expr: adj.EndExpr, Fire: func() { s.fireEnd(a, adj) }},
		)
		s.log.Debugw("armed shift triggers", map[string]any{
			"device": a.DeviceID,
			"start":  adj.StartExpr,
			"end":    adj.EndExpr,
		})
	}
	s.mu.Unlock()

	s.runner.ReplaceAll(triggers)
	s.log.Infof("armed %d trigger pairs", len(assignments))
}

// Devices returns the device IDs currently under an active assignment.
func (s *Scheduler) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.set))
	for id := range s.set {
		ids = append(ids, id)
	}
	return ids
}

// fireStart dispatches the activation command. Failures are logged and
// not retried; the next firing or the hourly refresh self-heals.
func (s *Scheduler) fireStart(a model.ShiftAssignment) {
	if err := s.sendCommand(a.DeviceID, a.CommandOn, "on"); err != nil {
		s.log.Errorf("device %s: activation dispatch failed: %v", a.DeviceID, err)
	}
}

// fireEnd evaluates ignition at shift end. Off dispatches the
// deactivation once; on starts the resend loop; unknown and reader
// errors abandon this firing without side effects.
func (s *Scheduler) fireEnd(a model.ShiftAssignment, adj model.AdjustedWindow) {
	entry := s.entry(a.DeviceID)
	if entry == nil {
		return // superseded by a refresh while the firing was queued
	}
	if !entry.state.beginFiring() {
		s.log.Warnf("device %s: end trigger fired while %s, skipping", a.DeviceID, entry.state.current())
		return
	}

	ign, err := s.readIgnition(a.DeviceID)
	if err != nil {
		s.log.Errorf("device %s: ignition read failed, abandoning end firing: %v", a.DeviceID, err)
		entry.state.rearm()
		return
	}

	switch ign {
	case model.IgnitionOff:
		if err := s.sendCommand(a.DeviceID, a.CommandOff, "off"); err != nil {
			s.log.Errorf("device %s: deactivation dispatch failed: %v", a.DeviceID, err)
		}
		entry.state.rearm()
	case model.IgnitionOn:
		if !entry.state.beginResending() {
			entry.state.rearm()
			return
		}
		s.startResendLoop(entry, a, adj)
	default:
		s.log.Warnf("device %s: ignition state unknown at shift end, no action", a.DeviceID)
		entry.state.rearm()
	}
}

func (s *Scheduler) entry(deviceID string) *armed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set[deviceID]
}

func (s *Scheduler) readIgnition(deviceID string) (model.IgnitionState, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.callTimeout)
	defer cancel()
	return s.platform.ReadIgnition(ctx, deviceID)
}

func (s *Scheduler) sendCommand(deviceID, payload, action string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.callTimeout)
	defer cancel()
	start := time.Now()
	err := s.platform.SendCommand(ctx, deviceID, payload)
	rec := metrics.CommandRecord{
		DeviceID: deviceID,
		Action:   action,
		Success:  err == nil,
		Latency:  time.Since(start),
		Time:     start,
	}
	if merr := s.sink.RecordCommand(rec); merr != nil {
		s.log.Errorf("metrics error: %v", merr)
	}
	if err == nil {
		s.log.Infof("device %s: %s command dispatched", deviceID, action)
	}
	return err
}
