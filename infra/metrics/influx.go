package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corelogger "github.com/fleetops/shiftd/core/logger"
	coremetrics "github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/infra/logger"
)

// InfluxSink writes scheduler activity and poller samples to InfluxDB
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelogger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing database never
// blocks the scheduler.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCommand writes one command dispatch attempt.
func (s *InfluxSink) RecordCommand(rec coremetrics.CommandRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("shift_command").
		AddTag("device_id", rec.DeviceID).
		AddTag("action", rec.Action).
		AddTag("success", strconv.FormatBool(rec.Success)).
		AddField("latency_ms", rec.Latency.Milliseconds()).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPollSamples writes the digital-output samples of one poll cycle
// plus the fleet-wide duty ratio.
func (s *InfluxSink) RecordPollSamples(samples []coremetrics.PollSample, dutyRatio float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, sample := range samples {
		p := write.NewPointWithMeasurement("digital_output").
			AddTag("device_id", sample.DeviceID).
			AddField("value", sample.Value).
			SetTime(sample.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	summary := write.NewPointWithMeasurement("digital_output_summary").
		AddField("duty_ratio", dutyRatio).
		AddField("samples", len(samples)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, summary)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }
