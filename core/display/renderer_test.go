package display

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/format"
	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/core/rates"
)

type op struct {
	kind string
	pos  int
	pat  [Banks]byte
}

type recordingBus struct {
	ops        []op
	failSelect error
	failDrive  error
}

func (b *recordingBus) Blank() error {
	b.ops = append(b.ops, op{kind: "blank"})
	return nil
}

func (b *recordingBus) Select(pos int) error {
	b.ops = append(b.ops, op{kind: "select", pos: pos})
	return b.failSelect
}

func (b *recordingBus) Drive(p [Banks]byte) error {
	b.ops = append(b.ops, op{kind: "drive", pat: p})
	return b.failDrive
}

func (b *recordingBus) count(kind string) int {
	n := 0
	for _, o := range b.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

type countingBus struct{ blanks, selects, drives int }

func (b *countingBus) Blank() error { b.blanks++; return nil }

func (b *countingBus) Select(int) error { b.selects++; return nil }

func (b *countingBus) Drive([Banks]byte) error { b.drives++; return nil }

type level int

func (l level) Level() int { return int(l) }

type button struct{ held bool }

func (b *button) Held() bool { return b.held }

func defaultConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

func readyStore() (*rates.Store, *clock.Clock) {
	s := rates.New()
	s.SetConnected(true)
	c := clock.NewWithSource(func() time.Time { return time.Date(2024, 10, 15, 12, 40, 0, 0, time.UTC) })
	c.MarkSynchronized()
	return s, c
}

func newRenderer(t *testing.T, cfg Config, bus Bus, s *rates.Store, c *clock.Clock, opts ...Option) *Renderer {
	t.Helper()
	opts = append([]Option{WithButton("mode", &button{})}, opts...)
	r, err := NewRenderer(cfg, bus, s, c, opts...)
	require.NoError(t, err)
	return r
}

func TestDutyCycleFollowsLevel(t *testing.T) {
	for l := 0; l < 4; l++ {
		bus := &countingBus{}
		s, c := readyStore()
		r := newRenderer(t, defaultConfig(), bus, s, c, WithLevelSource(level(l)))
		for i := 0; i < 6*4; i++ {
			r.Tick()
		}
		assert.Equal(t, 24, bus.blanks, "level %d", l)
		assert.Equal(t, 6*(l+1), bus.selects, "level %d", l)
		assert.Equal(t, 6*(l+1), bus.drives, "level %d", l)
	}
}

func TestLevelIsClamped(t *testing.T) {
	bus := &countingBus{}
	s, c := readyStore()
	r := newRenderer(t, defaultConfig(), bus, s, c, WithLevelSource(level(9)))
	for i := 0; i < 24; i++ {
		r.Tick()
	}
	assert.Equal(t, 24, bus.selects)

	bus = &countingBus{}
	r = newRenderer(t, defaultConfig(), bus, s, c, WithLevelSource(level(-3)))
	for i := 0; i < 24; i++ {
		r.Tick()
	}
	assert.Equal(t, 6, bus.selects)
}

func TestUnpopulatedPositionsSkipped(t *testing.T) {
	cfg := defaultConfig()
	cfg.PositionMask = 0x0005
	cfg.Groups = nil
	bus := &recordingBus{}
	s, c := readyStore()
	r, err := NewRenderer(cfg, bus, s, c)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		r.Tick()
	}
	var selected []int
	for _, o := range bus.ops {
		if o.kind == "select" {
			selected = append(selected, o.pos)
		}
	}
	assert.Equal(t, []int{0, 0, 0, 0, 2, 2, 2, 2, 0, 0, 0, 0, 2, 2, 2, 2}, selected)
	assert.Equal(t, uint64(2), r.Stats().Frames)
}

func TestTickSequencing(t *testing.T) {
	bus := &recordingBus{}
	s, c := readyStore()
	r := newRenderer(t, defaultConfig(), bus, s, c, WithLevelSource(level(0)))

	for i := 0; i < 4; i++ {
		r.Tick()
	}
	kinds := make([]string, 0, len(bus.ops))
	for _, o := range bus.ops {
		kinds = append(kinds, o.kind)
	}
	// Only the last tick of the sub-cycle is lit at level 0.
	assert.Equal(t, []string{"blank", "blank", "blank", "blank", "select", "drive"}, kinds)
}

func TestFrameShowsRates(t *testing.T) {
	s, c := readyStore()
	s.SetTrackerToday(model.FuelGas, model.RateEntry{Rate: 273, Valid: true})
	s.SetTrackerToday(model.FuelElectricity, model.RateEntry{Rate: 1650, Valid: true})
	s.SetTrackerTomorrow(model.FuelGas, model.RateEntry{Rate: -1000010, Valid: true})
	bus := &recordingBus{}
	r := newRenderer(t, defaultConfig(), bus, s, c)

	f := r.Frame()
	assert.Equal(t, "-1 -- \n2.7316.5", f.String(r.Mask()))

	r.Tick()
	require.Equal(t, "drive", bus.ops[2].kind)
	assert.Equal(t, [Banks]byte{0x40, 0x5B | SegmentDP}, bus.ops[2].pat)
}

func TestStatusPatterns(t *testing.T) {
	s := rates.New()
	c := clock.NewWithSource(time.Now)
	r := newRenderer(t, defaultConfig(), &countingBus{}, s, c)

	f := r.Frame()
	assert.Equal(t, "      \n      ", f.String(r.Mask()), "not connected")

	s.SetConnected(true)
	f = r.Frame()
	assert.Equal(t, "-  -  \n-  -  ", f.String(r.Mask()), "clock not synchronised")

	c.MarkSynchronized()
	f = r.Frame()
	assert.Equal(t, "-- -- \n-- -- ", f.String(r.Mask()), "rate not obtained")
}

func TestButtonTogglesAfterDebounce(t *testing.T) {
	s, c := readyStore()
	s.SetTrackerToday(model.FuelGas, model.RateEntry{Rate: 273, Valid: true})
	s.SetFlexible(model.FuelGas, model.RateEntry{Rate: 624, Valid: true})
	btn := &button{}
	r := newRenderer(t, defaultConfig(), &countingBus{}, s, c, WithButton("mode", btn), WithTariffs(true, false))

	cycle := func() {
		for i := 0; i < 24; i++ {
			r.Tick()
		}
	}
	gas := func() string {
		f := r.Frame()
		return f.String(r.Mask())[7:11]
	}

	cycle()
	assert.Equal(t, "2.73", gas())

	btn.held = true
	cycle()
	assert.Equal(t, "2.73", gas(), "one sample is not enough")
	cycle()
	assert.Equal(t, "6.24", gas())

	btn.held = false
	cycle()
	cycle()
	assert.Equal(t, "2.73", gas())
}

func TestButtonIgnoredWhenTariffDisabled(t *testing.T) {
	s, c := readyStore()
	s.SetTrackerToday(model.FuelGas, model.RateEntry{Rate: 273, Valid: true})
	s.SetFlexible(model.FuelGas, model.RateEntry{Rate: 624, Valid: true})
	btn := &button{held: true}
	r := newRenderer(t, defaultConfig(), &countingBus{}, s, c, WithButton("mode", btn))

	for i := 0; i < 48; i++ {
		r.Tick()
	}
	f := r.Frame()
	assert.Equal(t, "2.73", f.String(r.Mask())[7:11])
}

func TestAgileUsesCurrentSlot(t *testing.T) {
	s, c := readyStore()
	var tbl model.TimeOfUseTable
	tbl.Set(25, 1234) // 12:30
	tbl.Valid = true
	s.SetAgile(tbl)
	cfg := defaultConfig()
	cfg.Groups = []GroupConfig{{Bank: 0, First: 0, Fuel: "elec", Primary: "agile"}}
	r, err := NewRenderer(cfg, &countingBus{}, s, c)
	require.NoError(t, err)

	f := r.Frame()
	assert.Equal(t, format.Digits{Glyphs: [3]format.Glyph{1, 2, 3}, Point: format.PointAfter2}.String(),
		f.String(r.Mask())[:4])

	tbl.Mask = 0
	s.SetAgile(tbl)
	f = r.Frame()
	assert.Equal(t, "-- ", f.String(r.Mask())[:3])
}

func TestBusErrorBlanksAndCounts(t *testing.T) {
	s, c := readyStore()
	bus := &recordingBus{failDrive: errors.New("spi")}
	r := newRenderer(t, defaultConfig(), bus, s, c)

	r.Tick()
	last := bus.ops[len(bus.ops)-1]
	assert.Equal(t, "blank", last.kind)
	assert.Equal(t, uint64(1), r.Stats().Faults)

	bus.failDrive = nil
	bus.failSelect = errors.New("latch")
	r.Tick()
	assert.Equal(t, uint64(2), r.Stats().Faults)
	assert.Equal(t, 1, bus.count("drive"), "drive is skipped after a select failure")
}

func TestTickDoesNotAllocate(t *testing.T) {
	s, c := readyStore()
	var tbl model.TimeOfUseTable
	tbl.Set(25, 1234)
	tbl.Valid = true
	s.SetAgile(tbl)
	s.SetTrackerToday(model.FuelGas, model.RateEntry{Rate: 273, Valid: true})
	r := newRenderer(t, defaultConfig(), &countingBus{}, s, c, WithTariffs(true, true), WithButton("mode", &button{held: true}))

	cycle := bitsSet(r.Mask()) * defaultConfig().Levels
	allocs := testing.AllocsPerRun(100, func() {
		for i := 0; i < cycle; i++ {
			r.Tick()
		}
	})
	assert.Zero(t, allocs, "allocations per multiplex cycle")
	assert.Contains(t, func() string { f := r.Shown(); return f.String(r.Mask()) }(), "12.3")
}

func bitsSet(m uint16) int {
	n := 0
	for ; m != 0; m &= m - 1 {
		n++
	}
	return n
}

func TestRunBlanksOnExit(t *testing.T) {
	s, c := readyStore()
	cfg := defaultConfig()
	cfg.PeriodMicros = 100
	bus := &countingBus{}
	r := newRenderer(t, cfg, bus, s, c)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, r.Stats().Ticks, uint64(0))
	assert.Equal(t, int(r.Stats().Ticks)+1, bus.blanks)
}

func TestNewRendererErrors(t *testing.T) {
	s, c := readyStore()
	_, err := NewRenderer(defaultConfig(), &countingBus{}, s, c)
	assert.Error(t, err, "mode button is not bound")

	_, err = NewRenderer(defaultConfig(), nil, s, c)
	assert.Error(t, err)
}

func TestShownFollowsTick(t *testing.T) {
	s, c := readyStore()
	r := newRenderer(t, defaultConfig(), &countingBus{}, s, c)
	assert.Equal(t, blankFrame, r.Shown())

	s.SetTrackerToday(model.FuelGas, model.RateEntry{Rate: 273, Valid: true})
	r.Tick()
	shown := r.Shown()
	assert.Equal(t, r.Frame(), shown)
	assert.Contains(t, shown.String(r.Mask()), "2.73")
}

func TestAgileMissingSlotShowsObtained(t *testing.T) {
	s, c := readyStore()
	var tbl model.TimeOfUseTable
	tbl.Set(24, 1234)
	tbl.Valid = true
	s.SetAgile(tbl)
	btn := &button{held: true}
	r := newRenderer(t, defaultConfig(), &countingBus{}, s, c, WithButton("mode", btn), WithTariffs(false, true))
	// Two samples to settle the debouncer.
	for i := 0; i < 2*bitsSet(r.Mask())*defaultConfig().Levels; i++ {
		r.Tick()
	}

	f := r.Frame()
	// 12:40 is slot 25, which the feed did not include.
	assert.Equal(t, "   ---\n-- -- ", f.String(r.Mask()))
}

func TestReleaseBlanksAndStopsTicks(t *testing.T) {
	s, c := readyStore()
	s.SetTrackerToday(model.FuelGas, model.RateEntry{Rate: 273, Valid: true})
	bus := &countingBus{}
	r := newRenderer(t, defaultConfig(), bus, s, c)
	for i := 0; i < 24; i++ {
		r.Tick()
	}
	ticks := r.Stats().Ticks

	require.NoError(t, r.Release())
	blanks, drives := bus.blanks, bus.drives
	for i := 0; i < 24; i++ {
		r.Tick()
	}
	assert.Equal(t, ticks, r.Stats().Ticks)
	assert.Equal(t, drives, bus.drives, "no segment is driven after release")
	assert.Equal(t, blanks, bus.blanks)
	require.NoError(t, r.Release(), "release twice")
}
