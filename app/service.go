package app

import (
	"context"
	"fmt"

	"github.com/fleetops/shiftd/config"
	coremetrics "github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/model"
	corerelay "github.com/fleetops/shiftd/core/relay"
	"github.com/fleetops/shiftd/core/schedule"
	"github.com/fleetops/shiftd/core/telemetry"
	"github.com/fleetops/shiftd/infra/logger"
	"github.com/fleetops/shiftd/infra/metrics"
	"github.com/fleetops/shiftd/infra/mqtt"
	"github.com/fleetops/shiftd/infra/platform"
	"github.com/fleetops/shiftd/infra/relay"
	"github.com/fleetops/shiftd/internal/eventbus"
)

// Service wires the shift scheduler and the telemetry relay together.
type Service struct {
	cfg    *config.Config
	log    logger.Logger
	client *mqtt.Client
	sink   coremetrics.Sink

	bus    *eventbus.Bus[model.TelemetryEvent]
	router *telemetry.Router
	hub    *corerelay.Hub
	ws     *relay.Server

	platform *platform.HTTPClient
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	client, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New[model.TelemetryEvent]()
	router := telemetry.NewRouter(client, cfg.Telemetry, bus, logger.New("telemetry-router"), sink)
	hub := corerelay.NewHub(bus, router, cfg.Relay.QueueSize, logger.New("relay-hub"), sink)
	ws := relay.NewServer(hub, cfg.Relay)

	return &Service{
		cfg:      cfg,
		log:      logg,
		client:   client,
		sink:     sink,
		bus:      bus,
		router:   router,
		hub:      hub,
		ws:       ws,
		platform: platform.NewHTTPClient(cfg.Platform),
	}, nil
}

// Run starts every subsystem and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	runner := schedule.NewRunner(ctx, logger.New("trigger-runner"))
	sched := schedule.NewScheduler(ctx, runner, s.platform, s.cfg.Scheduler, logger.New("shift-scheduler"), s.sink)
	source := schedule.StaticSource{List: s.cfg.Scheduler.Assignments}
	refresher := schedule.NewRefresher(source, sched, s.cfg.Scheduler.RefreshInterval(), logger.New("refresher"))
	poller := schedule.NewPoller(sched, s.platform, s.cfg.Scheduler, logger.New("status-poller"), s.sink)

	s.router.Start()
	go s.hub.Run(ctx)
	go refresher.Run(ctx)
	go poller.Run(ctx)
	go func() {
		if err := s.ws.Run(ctx); err != nil {
			s.log.Errorf("relay server: %v", err)
		}
	}()
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.client.Disconnect()
	return nil
}
