package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apiblackout "github.com/powergrid-labs/blackoutd/api/blackout"
	"github.com/powergrid-labs/blackoutd/config"
	"github.com/powergrid-labs/blackoutd/core/allocation"
	"github.com/powergrid-labs/blackoutd/core/incident"
	coremetrics "github.com/powergrid-labs/blackoutd/core/metrics"
	"github.com/powergrid-labs/blackoutd/core/narrative"
	"github.com/powergrid-labs/blackoutd/core/recovery"
	"github.com/powergrid-labs/blackoutd/core/registry"
	"github.com/powergrid-labs/blackoutd/infra/logger"
	"github.com/powergrid-labs/blackoutd/infra/metrics"
	"github.com/powergrid-labs/blackoutd/infra/mqtt"
	"github.com/powergrid-labs/blackoutd/internal/eventbus"
)

// Service orchestrates the incident manager and its adapters.
type Service struct {
	Manager *incident.Manager

	cfg       *config.Config
	bus       eventbus.EventBus
	log       logger.Logger
	publisher *mqtt.Publisher
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	reg, err := registry.New(config.Catalog(cfg.Zones))
	if err != nil {
		return nil, fmt.Errorf("zone registry: %w", err)
	}

	var sinks []coremetrics.MetricsSink
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
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	sched := recovery.NewScheduler(cfg.Recovery, recovery.RealClock{}, logger.New("recovery"))
	manager, err := incident.NewManager(
		context.Background(),
		reg,
		allocation.NewPlanner(logger.New("planner")),
		sched,
		bus,
		sink,
		narrative.TemplateAnnotator{},
		recovery.RealClock{},
		logger.New("incident-manager"),
	)
	if err != nil {
		return nil, fmt.Errorf("incident manager: %w", err)
	}

	svc := &Service{Manager: manager, cfg: cfg, bus: bus, log: logg}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(cfg.MQTT, logger.New("mqtt-publisher"))
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}
	return svc, nil
}

// Run starts the HTTP API and adapters, blocking until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.publisher != nil {
		go s.publisher.Forward(ctx, s.bus)
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	handler := apiblackout.NewHandler(s.Manager, s.bus, logger.New("api"))
	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: handler.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()

	s.log.Infof("serving blackout API on %s", s.cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Close()
	}
	return s.Manager.Close()
}
