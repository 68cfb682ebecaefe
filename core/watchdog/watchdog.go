// Package watchdog restarts the process when rates stay missing for too long.
//
// Some failures cannot be fixed by retrying: a captive network, an access
// point that was switched off, a tariff code that no longer exists. The
// watchdog counts the ticks during which any enabled category is missing and
// restarts the process once the count passes the limit.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/tariffticker/core/logger"
	"github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/core/monitoring"
)

// ErrLivenessFailure is the reason given to the Restarter.
var ErrLivenessFailure = errors.New("liveness failure")

// Source reports whether a category holds an obtained rate.
type Source interface {
	Valid(c model.Category) bool
}

// Restarter replaces the running process. A successful restart does not
// return.
type Restarter interface {
	Restart(reason error) error
}

// Config tunes the watchdog.
type Config struct {
	IntervalMS int `json:"interval_ms"`
	// Limit is the number of consecutive failing ticks tolerated.
	Limit int `json:"limit"`
}

// SetDefaults applies the fifteen minute default.
func (c *Config) SetDefaults() {
	if c.IntervalMS <= 0 {
		c.IntervalMS = 1000
	}
	if c.Limit <= 0 {
		c.Limit = 900
	}
}

// Watchdog tracks how long enabled categories have been missing.
type Watchdog struct {
	cfg       Config
	src       Source
	cats      []model.Category
	restarter Restarter
	log       logger.Logger
	sink      metrics.WatchdogRecorder

	counter int
	fired   bool
}

// Option customises a Watchdog.
type Option func(*Watchdog)

// WithLogger sets the watchdog logger.
func WithLogger(l logger.Logger) Option { return func(w *Watchdog) { w.log = l } }

// WithRecorder records the counter after every tick.
func WithRecorder(r metrics.WatchdogRecorder) Option { return func(w *Watchdog) { w.sink = r } }

// New creates a watchdog over the given categories. Tomorrow's tracker rate
// is never watched.
func New(cfg Config, src Source, cats []model.Category, restarter Restarter, opts ...Option) (*Watchdog, error) {
	if src == nil || restarter == nil {
		return nil, fmt.Errorf("watchdog: source and restarter are required")
	}
	w := &Watchdog{
		cfg:       cfg,
		src:       src,
		cats:      cats,
		restarter: restarter,
		log:       logger.NopLogger{},
		sink:      metrics.NopSink{},
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Counter returns the number of consecutive failing ticks.
func (w *Watchdog) Counter() int { return w.counter }

// Fired reports whether the restart has been triggered.
func (w *Watchdog) Fired() bool { return w.fired }

func (w *Watchdog) missing() []model.Category {
	var out []model.Category
	for _, c := range w.cats {
		if !w.src.Valid(c) {
			out = append(out, c)
		}
	}
	return out
}

// Tick checks the categories once. It returns true on the tick that
// triggers the restart, together with the restart error if any. Later ticks
// never trigger again.
func (w *Watchdog) Tick(now time.Time) (bool, error) {
	missing := w.missing()
	if len(missing) == 0 {
		if w.counter > 0 {
			w.log.Infof("all rates obtained after %d ticks", w.counter)
		}
		w.counter = 0
		w.record(now)
		return false, nil
	}

	w.counter++
	w.log.Debugf("watchdog %d/%d, missing %v", w.counter, w.cfg.Limit, missing)
	if w.counter <= w.cfg.Limit || w.fired {
		w.record(now)
		return false, nil
	}

	w.fired = true
	w.record(now)
	reason := fmt.Errorf("%w: %v missing for %d ticks", ErrLivenessFailure, missing, w.counter)
	w.log.Errorf("restarting: %v", reason)
	monitoring.Report("watchdog", reason)
	monitoring.Flush(2 * time.Second)
	if err := w.restarter.Restart(reason); err != nil {
		return true, fmt.Errorf("restart: %w", errors.Join(reason, err))
	}
	return true, nil
}

func (w *Watchdog) record(now time.Time) {
	ev := metrics.WatchdogEvent{Counter: w.counter, Limit: w.cfg.Limit, Fired: w.fired, Time: now}
	if err := w.sink.RecordWatchdog(ev); err != nil {
		w.log.Warnf("record watchdog: %v", err)
	}
}

// Run ticks every interval until ctx ends or the restart fires. A restart
// that returns hands back the liveness failure so the caller can exit.
func (w *Watchdog) Run(ctx context.Context) error {
	t := time.NewTicker(time.Duration(w.cfg.IntervalMS) * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			fired, err := w.Tick(now)
			if err != nil {
				return err
			}
			if fired {
				return ErrLivenessFailure
			}
		}
	}
}
