package schedule

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/fleetops/shiftd/core/logger"
	"github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/platform"
)

// Poller samples the secondary digital-output channel of every device
// under an active assignment. Pure observability: values are logged and
// optionally recorded, nothing is mutated and nothing is retried.
type Poller struct {
	sched    *Scheduler
	reader   platform.OutputReader
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger
	sink     metrics.Sink
}

// NewPoller creates a Poller over the scheduler's active device set.
func NewPoller(sched *Scheduler, reader platform.OutputReader, cfg Config, log logger.Logger, sink metrics.Sink) *Poller {
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Poller{
		sched:    sched,
		reader:   reader,
		interval: cfg.PollInterval(),
		timeout:  cfg.CallTimeout(),
		log:      log,
		sink:     sink,
	}
}

// Run polls on the configured cadence until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll reads the digital output of every scheduled device. Failures are
// logged and the device skipped for this cycle.
func (p *Poller) poll(ctx context.Context) {
	devices := p.sched.Devices()
	if len(devices) == 0 {
		return
	}

	now := time.Now()
	samples := make([]metrics.PollSample, 0, len(devices))
	values := make([]float64, 0, len(devices))
	for _, id := range devices {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		v, err := p.reader.ReadOutput(callCtx, id)
		cancel()
		if err != nil {
			p.log.Warnf("device %s: output read failed: %v", id, err)
			continue
		}
		p.log.Debugw("digital output sample", map[string]any{"device": id, "value": v})
		samples = append(samples, metrics.PollSample{DeviceID: id, Value: v, Time: now})
		values = append(values, v)
	}
	if len(values) == 0 {
		return
	}

	// Outputs are 0/1, so the fleet mean is the share of devices with
	// the output asserted.
	duty := stat.Mean(values, nil)
	p.log.Infof("polled %d/%d devices, output duty ratio %.2f", len(values), len(devices), duty)
	if pr, ok := p.sink.(metrics.PollRecorder); ok {
		if err := pr.RecordPollSamples(samples, duty); err != nil {
			p.log.Errorf("metrics error: %v", err)
		}
	}
}
