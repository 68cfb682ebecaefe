package metrics

import (
	"time"

	"github.com/kilianp07/tariffticker/core/model"
)

// RateEvent is a freshly parsed category.
type RateEvent struct {
	CycleID  string
	Category model.Category
	Entry    model.RateEntry
	// Tomorrow is only set for the tracker tariff.
	Tomorrow model.RateEntry
	// Summary is only set for the agile tariff.
	Summary *model.Summary
	Time    time.Time
}

// MetricsSink records rate updates for observability purposes.
type MetricsSink interface {
	RecordRate(ev RateEvent) error
}

// FetchEvent describes one completed fetch of an endpoint, including its
// retries.
type FetchEvent struct {
	CycleID  string
	Category model.Category
	Attempts int
	Duration time.Duration
	Status   int
	Err      string
	Time     time.Time
}

// FetchRecorder records fetch outcomes.
type FetchRecorder interface {
	RecordFetch(ev FetchEvent) error
}

// InvalidationEvent records categories cleared by the refresh policy.
type InvalidationEvent struct {
	Reason     string
	Categories []model.Category
	Time       time.Time
}

// InvalidationRecorder records refresh policy decisions.
type InvalidationRecorder interface {
	RecordInvalidation(ev InvalidationEvent) error
}

// BrightnessEvent is one evaluation of the brightness controller.
type BrightnessEvent struct {
	Level   int
	Average int
	Time    time.Time
}

// BrightnessRecorder records brightness changes.
type BrightnessRecorder interface {
	RecordBrightness(ev BrightnessEvent) error
}

// WatchdogEvent is the watchdog state after a tick.
type WatchdogEvent struct {
	Counter int
	Limit   int
	Fired   bool
	Time    time.Time
}

// WatchdogRecorder records watchdog progress.
type WatchdogRecorder interface {
	RecordWatchdog(ev WatchdogEvent) error
}

// DisplayEvent holds cumulative renderer counters.
type DisplayEvent struct {
	Ticks  uint64
	Frames uint64
	Faults uint64
	Time   time.Time
}

// DisplayRecorder records renderer counters.
type DisplayRecorder interface {
	RecordDisplay(ev DisplayEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRate(RateEvent) error                 { return nil }
func (NopSink) RecordFetch(FetchEvent) error               { return nil }
func (NopSink) RecordInvalidation(InvalidationEvent) error { return nil }
func (NopSink) RecordBrightness(BrightnessEvent) error     { return nil }
func (NopSink) RecordWatchdog(WatchdogEvent) error         { return nil }
func (NopSink) RecordDisplay(DisplayEvent) error           { return nil }
