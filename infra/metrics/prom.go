package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fleetops/shiftd/core/metrics"
)

// PromSink records scheduler and relay activity in Prometheus metrics.
type PromSink struct {
	commands  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	resends   *prometheus.CounterVec
	events    *prometheus.CounterVec
	listeners prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus
// registerer. The Prometheus server is started separately.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shift_commands_total",
		Help: "Total number of shift command dispatch attempts",
	}, []string{"device_id", "action", "success"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shift_command_latency_seconds",
		Help:    "Time spent dispatching a command to the platform",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	resends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shift_resend_polls_total",
		Help: "Ignition polls performed by resend loops",
	}, []string{"device_id"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_events_total",
		Help: "Classified telemetry events by kind",
	}, []string{"kind"})
	listeners := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_listeners",
		Help: "Number of connected dashboard listeners",
	})

	if err := register(reg, &commands); err != nil {
		return nil, err
	}
	if err := registerHist(reg, &latency); err != nil {
		return nil, err
	}
	if err := register(reg, &resends); err != nil {
		return nil, err
	}
	if err := register(reg, &events); err != nil {
		return nil, err
	}
	if err := reg.Register(listeners); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			listeners = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{commands: commands, latency: latency, resends: resends, events: events, listeners: listeners}, nil
}

func register(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*c = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

func registerHist(reg prometheus.Registerer, h **prometheus.HistogramVec) error {
	if err := reg.Register(*h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*h = are.ExistingCollector.(*prometheus.HistogramVec)
			return nil
		}
		return err
	}
	return nil
}

// RecordCommand increments the command counter and latency histogram.
func (s *PromSink) RecordCommand(rec coremetrics.CommandRecord) error {
	s.commands.WithLabelValues(rec.DeviceID, rec.Action, strconv.FormatBool(rec.Success)).Inc()
	s.latency.WithLabelValues(rec.Action).Observe(rec.Latency.Seconds())
	return nil
}

// RecordResendPoll counts one resend loop ignition poll.
func (s *PromSink) RecordResendPoll(deviceID string) error {
	s.resends.WithLabelValues(deviceID).Inc()
	return nil
}

// RecordTelemetryEvent counts one classified telemetry event.
func (s *PromSink) RecordTelemetryEvent(kind string) error {
	s.events.WithLabelValues(kind).Inc()
	return nil
}

// RecordListeners sets the connected listener gauge.
func (s *PromSink) RecordListeners(n int) error {
	s.listeners.Set(float64(n))
	return nil
}
