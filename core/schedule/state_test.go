package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentStateCycle(t *testing.T) {
	var s assignmentState
	assert.Equal(t, phaseArmed, s.current())

	assert.True(t, s.beginFiring())
	assert.Equal(t, phaseFiring, s.current())
	assert.False(t, s.beginFiring(), "firing must not overlap itself")

	assert.True(t, s.beginResending())
	assert.Equal(t, phaseResending, s.current())
	assert.False(t, s.beginResending())
	assert.False(t, s.beginFiring())

	s.rearm()
	assert.Equal(t, phaseArmed, s.current())
	assert.False(t, s.beginResending(), "resending is only reachable from firing")
}

func TestAssignmentPhaseString(t *testing.T) {
	assert.Equal(t, "armed", phaseArmed.String())
	assert.Equal(t, "firing", phaseFiring.String())
	assert.Equal(t, "resending", phaseResending.String())
}
