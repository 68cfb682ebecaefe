// Package app wires the ticker's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/tariffticker/config"
	"github.com/kilianp07/tariffticker/core/acquisition"
	"github.com/kilianp07/tariffticker/core/brightness"
	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/display"
	"github.com/kilianp07/tariffticker/core/events"
	coremetrics "github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/core/monitoring"
	coremqtt "github.com/kilianp07/tariffticker/core/mqtt"
	"github.com/kilianp07/tariffticker/core/rates"
	"github.com/kilianp07/tariffticker/core/watchdog"
	"github.com/kilianp07/tariffticker/infra/hardware"
	"github.com/kilianp07/tariffticker/infra/logger"
	"github.com/kilianp07/tariffticker/infra/metrics"
	"github.com/kilianp07/tariffticker/infra/mqtt"
	"github.com/kilianp07/tariffticker/infra/octopus"
	"github.com/kilianp07/tariffticker/infra/system"
	"github.com/kilianp07/tariffticker/internal/eventbus"
)

// Service owns the rate cache and every task that reads or writes it.
type Service struct {
	Store      *rates.Store
	Clock      *clock.Clock
	Bus        *eventbus.TypedBus[events.Event]
	Engine     *acquisition.Engine
	Renderer   *display.Renderer
	Brightness *brightness.Controller
	Watchdog   *watchdog.Watchdog
	Board      *hardware.Board

	sink      coremetrics.MetricsSink
	publisher coremqtt.Publisher
	closers   []func()
	promAddr  string
	stats     time.Duration
	log       logger.Logger
}

type options struct {
	fetcher   acquisition.Fetcher
	restarter watchdog.Restarter
	board     *hardware.Board
	publisher coremqtt.Publisher
	sink      coremetrics.MetricsSink
}

// Option replaces a component built from configuration.
type Option func(*options)

// WithFetcher replaces the HTTPS client.
func WithFetcher(f acquisition.Fetcher) Option { return func(o *options) { o.fetcher = f } }

// WithRestarter replaces the process restarter.
func WithRestarter(r watchdog.Restarter) Option { return func(o *options) { o.restarter = r } }

// WithBoard replaces the hardware named by the configuration.
func WithBoard(b *hardware.Board) Option { return func(o *options) { o.board = b } }

// WithPublisher replaces the MQTT publisher.
func WithPublisher(p coremqtt.Publisher) Option { return func(o *options) { o.publisher = p } }

// WithSink replaces the metrics sinks.
func WithSink(s coremetrics.MetricsSink) Option { return func(o *options) { o.sink = s } }

// New builds a Service from a loaded configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.New("service")
	s := &Service{
		Store:    rates.New(),
		Clock:    clock.New(),
		Bus:      eventbus.NewTyped[events.Event](),
		promAddr: cfg.Metrics.PrometheusAddr,
		stats:    time.Duration(cfg.Metrics.StatsIntervalSeconds) * time.Second,
		log:      log,
	}
	if cfg.API.TrustSystemClock {
		s.Clock.MarkSynchronized()
	}

	s.sink = o.sink
	if s.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, err
		}
		s.sink = sink
	}

	fetcher := o.fetcher
	if fetcher == nil {
		client, err := octopus.NewClient(cfg.API)
		if err != nil {
			return nil, fmt.Errorf("api client: %w", err)
		}
		fetcher = client
	}
	engine, err := acquisition.NewEngine(cfg.Tariffs, s.Store, s.Clock, fetcher,
		acquisition.WithLogger(logger.New("acquisition")),
		acquisition.WithSink(s.sink),
		acquisition.WithBus(s.Bus),
	)
	if err != nil {
		return nil, fmt.Errorf("acquisition: %w", err)
	}
	s.Engine = engine

	s.Board = o.board
	if s.Board == nil {
		board, err := hardware.Open(cfg.Hardware)
		if err != nil {
			return nil, fmt.Errorf("hardware: %w", err)
		}
		s.Board = board
	}

	ctrl, err := brightness.NewController(cfg.Brightness, s.Board.Sensor,
		brightness.WithLogger(logger.New("brightness")),
		brightness.WithRecorder(recorder[coremetrics.BrightnessRecorder](s.sink)),
	)
	if err != nil {
		return nil, fmt.Errorf("brightness: %w", err)
	}
	s.Brightness = ctrl

	ropts := []display.Option{
		display.WithLevelSource(ctrl),
		display.WithTariffs(cfg.Tariffs.Flexible.Enabled, cfg.Tariffs.Agile.Enabled),
		display.WithLogger(logger.New("display")),
	}
	for name, b := range s.Board.Buttons {
		ropts = append(ropts, display.WithButton(name, b))
	}
	renderer, err := display.NewRenderer(cfg.Display, s.Board.Bus, s.Store, s.Clock, ropts...)
	if err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	s.Renderer = renderer

	restarter := o.restarter
	if restarter == nil {
		if restarter, err = system.New(cfg.Restart, renderer.Release); err != nil {
			return nil, err
		}
	}
	wd, err := watchdog.New(cfg.Watchdog, s.Store, engine.Categories(), restarter,
		watchdog.WithLogger(logger.New("watchdog")),
		watchdog.WithRecorder(recorder[coremetrics.WatchdogRecorder](s.sink)),
	)
	if err != nil {
		return nil, err
	}
	s.Watchdog = wd

	s.publisher = o.publisher
	if s.publisher == nil && cfg.MQTT.Enabled {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		s.publisher = pub
		s.closers = append(s.closers, pub.Disconnect)
	}
	return s, nil
}

// recorder returns sink as R, or a no-op recorder when sink does not record
// that kind of event.
func recorder[R any](sink coremetrics.MetricsSink) R {
	if r, ok := sink.(R); ok {
		return r
	}
	var nop any = coremetrics.NopSink{}
	return nop.(R)
}

func (s *Service) goSafe(g *errgroup.Group, name string, fn func() error) {
	g.Go(func() error {
		defer monitoring.Recover()
		err := fn()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Errorf("%s stopped: %v", name, err)
		}
		return err
	})
}

// Run starts every task and blocks until ctx is canceled or a task fails.
// Cancellation is a clean exit; a watchdog restart that returns is not.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	mqtt.StartPublisher(ctx, s.Bus, s.publisher)
	metrics.StartDisplayStats(ctx, s.Renderer, s.sink, s.stats, logger.New("display_stats"))

	s.goSafe(g, "acquisition", func() error { return s.Engine.Run(ctx) })
	s.goSafe(g, "display", func() error { return s.Renderer.Run(ctx) })
	s.goSafe(g, "brightness", func() error { return s.Brightness.Run(ctx) })
	s.goSafe(g, "watchdog", func() error { return s.Watchdog.Run(ctx) })
	if s.promAddr != "" {
		s.goSafe(g, "prometheus", func() error { return metrics.StartPromServer(ctx, s.promAddr, nil) })
	}
	s.log.Infof("ticker running, categories %v", s.Engine.Categories())

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases network connections and the event bus.
func (s *Service) Close() error {
	for _, c := range s.closers {
		c()
	}
	s.Bus.Close()
	return nil
}
