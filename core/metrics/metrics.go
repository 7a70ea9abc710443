package metrics

import "time"

// CommandRecord describes one command dispatch attempt.
type CommandRecord struct {
	DeviceID string
	// Action is "on", "off" or "manual".
	Action  string
	Success bool
	Latency time.Duration
	Time    time.Time
}

// Sink records command dispatch results for observability purposes.
type Sink interface {
	RecordCommand(rec CommandRecord) error
}

// PollSample is one digital-output reading taken by the status poller.
type PollSample struct {
	DeviceID string
	Value    float64
	Time     time.Time
}

// PollRecorder records status poller samples and their batch summary.
// Implemented by sinks that can store per-device time series.
type PollRecorder interface {
	RecordPollSamples(samples []PollSample, dutyRatio float64) error
}

// EventRecorder counts classified telemetry events by kind.
type EventRecorder interface {
	RecordTelemetryEvent(kind string) error
}

// ListenerRecorder tracks the number of connected relay listeners.
type ListenerRecorder interface {
	RecordListeners(n int) error
}

// ResendRecorder counts resend loop polls and completions.
type ResendRecorder interface {
	RecordResendPoll(deviceID string) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordCommand(CommandRecord) error { return nil }
