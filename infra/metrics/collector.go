package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/tariffticker/core/display"
	coremetrics "github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/infra/logger"
)

// StatsSource exposes cumulative renderer counters.
type StatsSource interface {
	Stats() display.Stats
}

// StartDisplayStats samples src every interval and records the counters when
// sink accepts them. Record failures go to log, or to a component logger when
// log is nil. It stops when the context is canceled.
func StartDisplayStats(ctx context.Context, src StatsSource, sink coremetrics.MetricsSink, interval time.Duration, log logger.Logger) {
	if src == nil || sink == nil || interval <= 0 {
		return
	}
	rec, ok := sink.(coremetrics.DisplayRecorder)
	if !ok {
		return
	}
	if log == nil {
		log = logger.New("display_stats")
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s := src.Stats()
				if err := rec.RecordDisplay(coremetrics.DisplayEvent{
					Ticks:  s.Ticks,
					Frames: s.Frames,
					Faults: s.Faults,
					Time:   now,
				}); err != nil {
					log.Warnf("record display stats: %v", err)
				}
			}
		}
	}()
}
