package display

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/format"
	"github.com/kilianp07/tariffticker/core/logger"
	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/core/rates"
)

// Bus drives the digit hardware. Blank deselects every position and turns
// every segment off. Select latches one position onto the anode lines and
// enables them. Drive sets the segment lines of both banks.
type Bus interface {
	Blank() error
	Select(pos int) error
	Drive(patterns [Banks]byte) error
}

// Button is a mode input.
type Button interface {
	Held() bool
}

// LevelSource provides the current brightness level.
type LevelSource interface {
	Level() int
}

type fixedLevel int

func (l fixedLevel) Level() int { return int(l) }

// Stats counts renderer activity.
type Stats struct {
	Ticks  uint64
	Frames uint64
	Faults uint64
}

type buttonState struct {
	name   string
	button Button
	deb    Debouncer
}

// Renderer owns the multiplex state. Tick must be called from a single
// goroutine.
type Renderer struct {
	bus    Bus
	store  *rates.Store
	clock  *clock.Clock
	level  LevelSource
	log    logger.Logger
	period time.Duration
	levels int
	mask   uint16
	first  int

	groups   []group
	buttons  []buttonState
	groupBtn []int
	enabled  map[model.Tariff]bool

	pos   int
	sub   int
	frame Frame
	// shown points at one of bufs, the one not being written.
	bufs  [2]Frame
	next  int
	shown atomic.Pointer[Frame]
	// state is tickIdle, tickBusy or tickHalted.
	state atomic.Int32

	ticks  atomic.Uint64
	frames atomic.Uint64
	faults atomic.Uint64
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithLevelSource sets where the brightness level comes from. Without one
// the display runs at full brightness.
func WithLevelSource(l LevelSource) Option { return func(r *Renderer) { r.level = l } }

// WithButton binds a named button used by the group configuration.
func WithButton(name string, b Button) Option {
	return func(r *Renderer) {
		for i := range r.buttons {
			if r.buttons[i].name == name {
				r.buttons[i].button = b
				return
			}
		}
		r.buttons = append(r.buttons, buttonState{name: name, button: b})
	}
}

// WithTariffs tells which optional tariffs are fetched. Groups requiring a
// disabled tariff never switch to their alternate source.
func WithTariffs(flexible, agile bool) Option {
	return func(r *Renderer) {
		r.enabled[model.TariffFlexible] = flexible
		r.enabled[model.TariffAgile] = agile
	}
}

// WithLogger sets the logger used outside of Tick.
func WithLogger(l logger.Logger) Option { return func(r *Renderer) { r.log = l } }

// NewRenderer creates a renderer. cfg must already carry its defaults.
func NewRenderer(cfg Config, bus Bus, store *rates.Store, clk *clock.Clock, opts ...Option) (*Renderer, error) {
	if bus == nil || store == nil || clk == nil {
		return nil, fmt.Errorf("display: bus, store and clock are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{
		bus:     bus,
		store:   store,
		clock:   clk,
		log:     logger.NopLogger{},
		period:  cfg.Period(),
		levels:  cfg.Levels,
		mask:    cfg.PositionMask,
		enabled: map[model.Tariff]bool{model.TariffTracker: true},
		frame:   blankFrame,
	}
	r.level = fixedLevel(cfg.Levels - 1)
	for _, o := range opts {
		o(r)
	}
	for p := 0; p < Positions; p++ {
		if r.mask&(1<<uint(p)) != 0 {
			r.first = p
			break
		}
	}
	for _, gc := range cfg.Groups {
		g, err := compileGroup(gc)
		if err != nil {
			return nil, err
		}
		idx := -1
		if g.button != "" {
			for i := range r.buttons {
				if r.buttons[i].name == g.button {
					idx = i
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("display: no button named %q", g.button)
			}
		}
		r.groups = append(r.groups, g)
		r.groupBtn = append(r.groupBtn, idx)
	}
	r.pos = r.first
	return r, nil
}

// Stats returns the activity counters.
func (r *Renderer) Stats() Stats {
	return Stats{Ticks: r.ticks.Load(), Frames: r.frames.Load(), Faults: r.faults.Load()}
}

// Run calls Tick every period until ctx ends, then blanks the display.
func (r *Renderer) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t := time.NewTicker(r.period)
	defer t.Stop()
	r.log.Infof("display running, period %s, %d levels", r.period, r.levels)
	defer func() {
		if err := r.bus.Blank(); err != nil {
			r.log.Warnf("blank display: %v", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.Tick()
		}
	}
}

const (
	tickIdle int32 = iota
	tickBusy
	tickHalted
)

// Tick performs one multiplex step. It does not block, allocate or lock, and
// does nothing once Release has been called.
func (r *Renderer) Tick() {
	if !r.state.CompareAndSwap(tickIdle, tickBusy) {
		return
	}
	defer r.state.Store(tickIdle)
	r.ticks.Add(1)
	if r.pos == r.first && r.sub == 0 {
		r.recompute()
	}

	err := r.bus.Blank()
	if err == nil && r.sub >= r.levels-1-r.currentLevel() {
		if err = r.bus.Select(r.pos); err == nil {
			err = r.bus.Drive(r.frame.Patterns(r.pos))
		}
	}
	if err != nil {
		r.faults.Add(1)
		_ = r.bus.Blank()
	}
	r.advance()
}

// Release waits for a running Tick to finish, stops further ticks and blanks
// the display. It is safe to call from any goroutine, and is meant for the
// moments before the process is replaced or exits.
func (r *Renderer) Release() error {
	for {
		st := r.state.Load()
		if st == tickHalted || r.state.CompareAndSwap(tickIdle, tickHalted) {
			break
		}
		runtime.Gosched()
	}
	return r.bus.Blank()
}

func (r *Renderer) currentLevel() int {
	l := r.level.Level()
	if l < 0 {
		return 0
	}
	if l > r.levels-1 {
		return r.levels - 1
	}
	return l
}

func (r *Renderer) advance() {
	r.sub++
	if r.sub < r.levels {
		return
	}
	r.sub = 0
	for i := 1; i <= Positions; i++ {
		p := (r.pos + i) % Positions
		if r.mask&(1<<uint(p)) != 0 {
			r.pos = p
			return
		}
	}
}

func (r *Renderer) recompute() {
	r.frames.Add(1)
	for i := range r.buttons {
		held := false
		if r.buttons[i].button != nil {
			held = r.buttons[i].button.Held()
		}
		r.buttons[i].deb.Sample(held)
	}
	r.frame = r.build()
	buf := &r.bufs[r.next]
	*buf = r.frame
	r.shown.Store(buf)
	r.next ^= 1
}

func (r *Renderer) allowed(g *group) bool {
	return g.requires == nil || r.enabled[*g.requires]
}

func (r *Renderer) digits(src Source, fuel model.Fuel, pre format.Preconditions) format.Digits {
	var e model.RateEntry
	switch src {
	case SourceTracker:
		e = r.store.TrackerToday(fuel)
	case SourceTrackerTomorrow:
		e = r.store.TrackerTomorrow(fuel)
	case SourceFlexible:
		e = r.store.Flexible(fuel)
	case SourceAgile:
		return format.Slot(r.store.Agile(), model.SlotOf(r.clock.Now()), pre)
	default:
		return format.BlankDigits
	}
	return format.Entry(e, pre)
}

// Frame computes the frame Tick would show now, using the last debounced
// button states. It must not run concurrently with Tick.
func (r *Renderer) Frame() Frame { return r.build() }

func (r *Renderer) build() Frame {
	pre := format.Preconditions{Connected: r.store.Connected(), Synchronized: r.clock.Synchronized()}
	f := blankFrame
	for i := range r.groups {
		g := &r.groups[i]
		src := g.primary
		if b := r.groupBtn[i]; b >= 0 && r.buttons[b].deb.State() && r.allowed(g) {
			src = g.alternate
		}
		f.Put(g.bank, g.first, r.digits(src, g.fuel, pre))
	}
	return f
}

// Shown returns the frame Tick is currently multiplexing. It is safe to call
// while Run is active.
func (r *Renderer) Shown() Frame {
	if f := r.shown.Load(); f != nil {
		return *f
	}
	return blankFrame
}

// Mask returns the populated positions.
func (r *Renderer) Mask() uint16 { return r.mask }
