package metrics

import (
	"errors"

	coremetrics "github.com/fleetops/shiftd/core/metrics"
)

// MultiSink fans every record out to multiple sinks, joining errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordCommand(rec coremetrics.CommandRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordCommand(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordResendPoll(deviceID string) error {
	var errs []error
	for _, s := range m.sinks {
		if rr, ok := s.(coremetrics.ResendRecorder); ok {
			if err := rr.RecordResendPoll(deviceID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordTelemetryEvent(kind string) error {
	var errs []error
	for _, s := range m.sinks {
		if er, ok := s.(coremetrics.EventRecorder); ok {
			if err := er.RecordTelemetryEvent(kind); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordListeners(n int) error {
	var errs []error
	for _, s := range m.sinks {
		if lr, ok := s.(coremetrics.ListenerRecorder); ok {
			if err := lr.RecordListeners(n); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPollSamples(samples []coremetrics.PollSample, dutyRatio float64) error {
	var errs []error
	for _, s := range m.sinks {
		if pr, ok := s.(coremetrics.PollRecorder); ok {
			if err := pr.RecordPollSamples(samples, dutyRatio); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
