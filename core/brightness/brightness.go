// Package brightness turns ambient light readings into a display level.
package brightness

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kilianp07/tariffticker/core/logger"
	"github.com/kilianp07/tariffticker/core/metrics"
)

// Sensor returns raw light readings in [0, MaxReading]. Higher readings mean
// darker surroundings.
type Sensor interface {
	ReadRaw() (int, error)
}

// Config tunes the controller.
type Config struct {
	SampleIntervalMS int `json:"sample_interval_ms"`
	FilterLength     int `json:"filter_length"`
	MaxReading       int `json:"max_reading"`
	Levels           int `json:"levels"`
	Hysteresis       int `json:"hysteresis"`
	// InitialLevel is the level before the first reading. Unset selects
	// full brightness.
	InitialLevel *int `json:"initial_level"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SampleIntervalMS <= 0 {
		c.SampleIntervalMS = 50
	}
	if c.FilterLength <= 0 {
		c.FilterLength = 30
	}
	if c.MaxReading <= 0 {
		c.MaxReading = 4095
	}
	if c.Levels <= 0 {
		c.Levels = 4
	}
	if c.Hysteresis <= 0 {
		c.Hysteresis = 100
	}
	if c.InitialLevel == nil {
		full := c.Levels - 1
		c.InitialLevel = &full
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if l := c.initialLevel(); l < 0 || l >= c.Levels {
		return fmt.Errorf("initial_level %d outside [0, %d)", l, c.Levels)
	}
	if c.MaxReading < c.Levels {
		return fmt.Errorf("max_reading must be at least levels")
	}
	return nil
}

func (c Config) initialLevel() int {
	if c.InitialLevel == nil {
		return c.Levels - 1
	}
	return *c.InitialLevel
}

// Controller filters readings and owns the brightness level.
type Controller struct {
	cfg    Config
	sensor Sensor
	log    logger.Logger
	sink   metrics.BrightnessRecorder

	level atomic.Int32

	samples []int
	next    int
	sum     int
	primed  bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option { return func(c *Controller) { c.log = l } }

// WithRecorder records level changes.
func WithRecorder(r metrics.BrightnessRecorder) Option { return func(c *Controller) { c.sink = r } }

// NewController creates a controller. sensor may be nil when only Sample is
// used.
func NewController(cfg Config, sensor Sensor, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:     cfg,
		sensor:  sensor,
		log:     logger.NopLogger{},
		sink:    metrics.NopSink{},
		samples: make([]int, cfg.FilterLength),
	}
	c.level.Store(int32(cfg.initialLevel()))
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Level returns the current level, safe for concurrent use.
func (c *Controller) Level() int { return int(c.level.Load()) }

// Average returns the filtered, inverted reading.
func (c *Controller) Average() int {
	if !c.primed {
		return 0
	}
	return c.sum / len(c.samples)
}

// Sample feeds one raw reading and re-evaluates the level. It reports whether
// the level changed. Sample is not safe for concurrent use.
func (c *Controller) Sample(raw int) (int, bool) {
	if raw < 0 {
		raw = 0
	}
	if raw > c.cfg.MaxReading {
		raw = c.cfg.MaxReading
	}
	v := c.cfg.MaxReading - raw

	if !c.primed {
		for i := range c.samples {
			c.samples[i] = v
		}
		c.sum = v * len(c.samples)
		c.primed = true
	} else {
		c.sum += v - c.samples[c.next]
		c.samples[c.next] = v
		c.next = (c.next + 1) % len(c.samples)
	}

	lvl := c.Level()
	next := step(lvl, c.Average(), c.cfg)
	if next == lvl {
		return lvl, false
	}
	c.level.Store(int32(next))
	return next, true
}

// step moves at most one level across a band boundary.
func step(level, avg int, cfg Config) int {
	span := cfg.MaxReading / cfg.Levels
	upper := level*span + span + cfg.Hysteresis
	lower := level*span - cfg.Hysteresis
	switch {
	case avg > upper && level < cfg.Levels-1:
		return level + 1
	case avg < lower && level > 0:
		return level - 1
	}
	return level
}

// Run samples the sensor every interval until ctx ends. Read errors are
// logged and the sample skipped.
func (c *Controller) Run(ctx context.Context) error {
	if c.sensor == nil {
		return fmt.Errorf("brightness: no sensor")
	}
	t := time.NewTicker(time.Duration(c.cfg.SampleIntervalMS) * time.Millisecond)
	defer t.Stop()
	failing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		raw, err := c.sensor.ReadRaw()
		if err != nil {
			if !failing {
				c.log.Warnf("read light sensor: %v", err)
			}
			failing = true
			continue
		}
		failing = false
		lvl, changed := c.Sample(raw)
		if !changed {
			continue
		}
		c.log.Debugf("brightness level %d (average %d)", lvl, c.Average())
		if err := c.sink.RecordBrightness(metrics.BrightnessEvent{Level: lvl, Average: c.Average(), Time: time.Now()}); err != nil {
			c.log.Warnf("record brightness: %v", err)
		}
	}
}
