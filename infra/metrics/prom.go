package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/tariffticker/core/metrics"
)

// PromSink exposes rates, fetch outcomes and device state as Prometheus
// metrics.
type PromSink struct {
	rate          *prometheus.GaugeVec
	valid         *prometheus.GaugeVec
	agile         *prometheus.GaugeVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	attempts      *prometheus.HistogramVec
	invalidations *prometheus.CounterVec
	brightness    prometheus.Gauge
	light         prometheus.Gauge
	watchdog      prometheus.Gauge
	watchdogFired prometheus.Gauge
	display       *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on reg. A nil registerer
// defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.rate, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ticker_rate_pence",
		Help: "Unit rate in force, pence per kWh",
	}, []string{"tariff", "fuel", "day"})); err != nil {
		return nil, err
	}
	if s.valid, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ticker_rate_valid",
		Help: "1 when the category holds an obtained rate",
	}, []string{"tariff", "fuel"})); err != nil {
		return nil, err
	}
	if s.agile, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ticker_agile_pence",
		Help: "Summary of today's half-hourly agile rates",
	}, []string{"stat"})); err != nil {
		return nil, err
	}
	if s.fetches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticker_fetch_total",
		Help: "Completed fetches by outcome",
	}, []string{"tariff", "fuel", "status", "result"})); err != nil {
		return nil, err
	}
	if s.fetchDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticker_fetch_duration_seconds",
		Help:    "Time spent fetching an endpoint including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"tariff", "fuel"})); err != nil {
		return nil, err
	}
	if s.attempts, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticker_fetch_attempts",
		Help:    "Attempts needed per fetch",
		Buckets: []float64{1, 2, 3, 5, 10, 30},
	}, []string{"tariff", "fuel"})); err != nil {
		return nil, err
	}
	if s.invalidations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticker_invalidations_total",
		Help: "Categories cleared by the refresh policy",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if s.brightness, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ticker_brightness_level",
		Help: "Current display brightness level",
	})); err != nil {
		return nil, err
	}
	if s.light, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ticker_light_average",
		Help: "Filtered ambient light reading",
	})); err != nil {
		return nil, err
	}
	if s.watchdog, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ticker_watchdog_counter",
		Help: "Consecutive ticks with missing rates",
	})); err != nil {
		return nil, err
	}
	if s.watchdogFired, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ticker_watchdog_fired",
		Help: "1 once the watchdog has requested a restart",
	})); err != nil {
		return nil, err
	}
	if s.display, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ticker_display_counter",
		Help: "Cumulative renderer counters",
	}, []string{"counter"})); err != nil {
		return nil, err
	}
	return s, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RecordRate updates the rate gauges of the category.
func (s *PromSink) RecordRate(ev coremetrics.RateEvent) error {
	t, f := ev.Category.Tariff.String(), ev.Category.Fuel.String()
	s.valid.WithLabelValues(t, f).Set(boolGauge(ev.Entry.Valid))
	if ev.Entry.Valid {
		s.rate.WithLabelValues(t, f, "today").Set(ev.Entry.Rate.Float64())
	}
	if ev.Tomorrow.Valid {
		s.rate.WithLabelValues(t, f, "tomorrow").Set(ev.Tomorrow.Rate.Float64())
	}
	if ev.Summary != nil {
		s.agile.WithLabelValues("min").Set(ev.Summary.Min.Float64())
		s.agile.WithLabelValues("max").Set(ev.Summary.Max.Float64())
		s.agile.WithLabelValues("mean").Set(ev.Summary.Mean)
		s.agile.WithLabelValues("slots").Set(float64(ev.Summary.Slots))
	}
	return nil
}

// RecordFetch counts the fetch and observes its duration.
func (s *PromSink) RecordFetch(ev coremetrics.FetchEvent) error {
	t, f := ev.Category.Tariff.String(), ev.Category.Fuel.String()
	result := "ok"
	if ev.Err != "" {
		result = "error"
	}
	s.fetches.WithLabelValues(t, f, strconv.Itoa(ev.Status), result).Inc()
	s.fetchDuration.WithLabelValues(t, f).Observe(ev.Duration.Seconds())
	s.attempts.WithLabelValues(t, f).Observe(float64(ev.Attempts))
	return nil
}

// RecordInvalidation counts cleared categories and marks them not valid.
func (s *PromSink) RecordInvalidation(ev coremetrics.InvalidationEvent) error {
	s.invalidations.WithLabelValues(ev.Reason).Add(float64(len(ev.Categories)))
	for _, c := range ev.Categories {
		s.valid.WithLabelValues(c.Tariff.String(), c.Fuel.String()).Set(0)
	}
	return nil
}

func (s *PromSink) RecordBrightness(ev coremetrics.BrightnessEvent) error {
	s.brightness.Set(float64(ev.Level))
	s.light.Set(float64(ev.Average))
	return nil
}

func (s *PromSink) RecordWatchdog(ev coremetrics.WatchdogEvent) error {
	s.watchdog.Set(float64(ev.Counter))
	s.watchdogFired.Set(boolGauge(ev.Fired))
	return nil
}

func (s *PromSink) RecordDisplay(ev coremetrics.DisplayEvent) error {
	s.display.WithLabelValues("ticks").Set(float64(ev.Ticks))
	s.display.WithLabelValues("frames").Set(float64(ev.Frames))
	s.display.WithLabelValues("faults").Set(float64(ev.Faults))
	return nil
}
