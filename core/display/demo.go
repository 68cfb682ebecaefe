package display

import (
	"context"
	"time"

	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/core/rates"
)

// DemoStep is one stage of the self-test sequence.
type DemoStep struct {
	Name  string
	Apply func(*rates.Store, *clock.Clock)
}

func setRate(f model.Fuel, r model.Rate) func(*rates.Store, *clock.Clock) {
	return func(s *rates.Store, _ *clock.Clock) {
		e := model.RateEntry{Rate: r, Valid: true}
		s.SetTrackerToday(f, e)
		s.SetTrackerTomorrow(f, e)
		s.SetFlexible(f, e)
	}
}

func both(gas, elec model.Rate) func(*rates.Store, *clock.Clock) {
	return func(s *rates.Store, c *clock.Clock) {
		setRate(model.FuelGas, gas)(s, c)
		setRate(model.FuelElectricity, elec)(s, c)
	}
}

// DemoSteps walks the status patterns first, then a few literal prices and
// every boundary of the price format.
func DemoSteps() []DemoStep {
	steps := []DemoStep{
		{Name: "connected", Apply: func(s *rates.Store, _ *clock.Clock) { s.SetConnected(true) }},
		{Name: "synchronized", Apply: func(_ *rates.Store, c *clock.Clock) { c.MarkSynchronized() }},
		{Name: "gas 2.73", Apply: setRate(model.FuelGas, 273)},
		{Name: "electricity 16.50", Apply: setRate(model.FuelElectricity, 1650)},
		{Name: "0.00 / -10000.10", Apply: both(0, -1000010)},
		{Name: "0.10 / -10000.00", Apply: both(10, -1000000)},
	}
	for _, v := range []model.Rate{100000, 99999, 10000, 9999, 1000, 999, -1, -999, -1000, -9999, -10000} {
		steps = append(steps, DemoStep{Name: "boundary " + v.String(), Apply: both(v, v)})
	}
	return steps
}

// RunDemo applies the steps to store and clk, one per interval. onStep, when
// set, is called after each step is applied.
func RunDemo(ctx context.Context, store *rates.Store, clk *clock.Clock, interval time.Duration, onStep func(DemoStep)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for _, step := range DemoSteps() {
		step.Apply(store, clk)
		if onStep != nil {
			onStep(step)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
