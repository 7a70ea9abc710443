package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/fleetops/shiftd/core/metrics"
)

type stubSink struct {
	commands int
	resends  int
	events   int
	err      error
}

func (s *stubSink) RecordCommand(coremetrics.CommandRecord) error {
	s.commands++
	return s.err
}

func (s *stubSink) RecordResendPoll(string) error {
	s.resends++
	return s.err
}

func (s *stubSink) RecordTelemetryEvent(string) error {
	s.events++
	return s.err
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &stubSink{}
	b := &stubSink{}
	m := NewMultiSink(a, b)

	require.NoError(t, m.RecordCommand(coremetrics.CommandRecord{}))
	require.NoError(t, m.RecordResendPoll("dev1"))
	require.NoError(t, m.RecordTelemetryEvent("alarm"))

	assert.Equal(t, 1, a.commands)
	assert.Equal(t, 1, b.commands)
	assert.Equal(t, 1, a.resends)
	assert.Equal(t, 1, b.events)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	bad := &stubSink{err: errors.New("sink down")}
	good := &stubSink{}
	m := NewMultiSink(bad, good)

	err := m.RecordCommand(coremetrics.CommandRecord{})
	require.Error(t, err)
	assert.Equal(t, 1, good.commands, "a failing sink must not block the others")
}

func TestMultiSinkSkipsUnsupportedCapabilities(t *testing.T) {
	m := NewMultiSink(coremetrics.NopSink{})
	assert.NoError(t, m.RecordResendPoll("dev1"))
	assert.NoError(t, m.RecordTelemetryEvent("alarm"))
	assert.NoError(t, m.RecordListeners(1))
	assert.NoError(t, m.RecordPollSamples(nil, 0))
}
