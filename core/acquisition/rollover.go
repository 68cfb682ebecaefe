package acquisition

import (
	"time"

	"github.com/kilianp07/tariffticker/core/events"
	"github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/core/model"
)

// Rollover is the outcome of a refresh policy check.
type Rollover struct {
	HourChanged bool
	DayChanged  bool
	Invalidated []model.Category
}

// CheckRollover applies the refresh policy for now. The first call only
// records the current hour. Later calls act once per new hour and are no-ops
// within the same hour.
//
// On a new day every enabled category is invalidated. On every new hour the
// tracker tariff is invalidated for both fuels while either tomorrow rate is
// missing, and the agile table is invalidated when the slots of the new hour
// are not both populated.
func (e *Engine) CheckRollover(now time.Time) Rollover {
	now = now.UTC()
	date := now.Format("2006-01-02")

	e.mu.Lock()
	if !e.primed {
		e.primed, e.lastHour, e.lastDay = true, now.Hour(), date
		e.mu.Unlock()
		return Rollover{}
	}
	r := Rollover{DayChanged: date != e.lastDay}
	r.HourChanged = r.DayChanged || now.Hour() != e.lastHour
	e.lastHour, e.lastDay = now.Hour(), date
	e.mu.Unlock()

	if !r.HourChanged {
		return r
	}

	seen := make(map[model.Category]bool)
	add := func(c model.Category) {
		if !seen[c] {
			seen[c] = true
			r.Invalidated = append(r.Invalidated, c)
		}
	}

	if r.DayChanged {
		for _, c := range e.cats {
			e.store.Invalidate(c)
			add(c)
		}
	}
	if !e.store.TrackerTomorrow(model.FuelGas).Valid || !e.store.TrackerTomorrow(model.FuelElectricity).Valid {
		for _, f := range model.Fuels {
			e.store.InvalidateTracker(f)
			add(model.Category{Tariff: model.TariffTracker, Fuel: f})
		}
	}
	if e.agile && !e.store.Agile().HourValid(now.Hour()) {
		e.store.InvalidateAgile()
		add(model.Category{Tariff: model.TariffAgile, Fuel: model.FuelElectricity})
	}

	for _, c := range r.Invalidated {
		e.setState(c, StateNeedsFetch)
	}
	if len(r.Invalidated) > 0 {
		reason := "hour"
		if r.DayChanged {
			reason = "day"
		}
		e.log.Infof("%s rollover at %s invalidated %v", reason, now.Format(time.RFC3339), r.Invalidated)
		if e.bus != nil {
			e.bus.Publish(events.Invalidation{Reason: reason, Categories: r.Invalidated, Time: now})
		}
		if rec, ok := e.sink.(metrics.InvalidationRecorder); ok {
			if err := rec.RecordInvalidation(metrics.InvalidationEvent{Reason: reason, Categories: r.Invalidated, Time: now}); err != nil {
				e.log.Warnf("record invalidation: %v", err)
			}
		}
	}
	return r
}
