package schedule

import "sync"

// assignmentPhase tracks where an assignment is in its firing cycle.
// Transitions: armed -> firing -> (dispatched | resending) -> armed.
type assignmentPhase int

const (
	phaseArmed assignmentPhase = iota
	phaseFiring
	phaseResending
)

func (p assignmentPhase) String() string {
	switch p {
	case phaseFiring:
		return "firing"
	case phaseResending:
		return "resending"
	default:
		return "armed"
	}
}

// assignmentState is the per-assignment state machine. Each transition
// is an explicit method so the cycle is testable without timers. The
// zero value is armed.
type assignmentState struct {
	mu    sync.Mutex
	phase assignmentPhase
}

// beginFiring moves armed -> firing. It refuses when a previous end
// firing is still in flight or a resend loop is running, which keeps a
// trigger firing from overlapping with itself.
func (s *assignmentState) beginFiring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseArmed {
		return false
	}
	s.phase = phaseFiring
	return true
}

// beginResending moves firing -> resending.
func (s *assignmentState) beginResending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseFiring {
		return false
	}
	s.phase = phaseResending
	return true
}

// rearm returns the machine to armed from any phase. Called after a
// dispatch completes, a firing is abandoned, or a resend loop ends.
func (s *assignmentState) rearm() {
	s.mu.Lock()
	s.phase = phaseArmed
	s.mu.Unlock()
}

func (s *assignmentState) current() assignmentPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
