// Package rates holds the process-wide cache of fetched tariff rates.
//
// Every entry sits behind its own atomic pointer and is replaced wholesale,
// so a reader sees either the previous record or the new one and never a
// record whose rate and validity disagree. Reads never block and never
// allocate, which makes them safe from the display refresh loop.
package rates

import (
	"sync/atomic"

	"github.com/kilianp07/tariffticker/core/model"
)

// Store is the shared rate cache. The zero value is ready to use and holds
// no valid entries.
type Store struct {
	trackerToday    [2]atomic.Pointer[model.RateEntry]
	trackerTomorrow [2]atomic.Pointer[model.RateEntry]
	flexible        [2]atomic.Pointer[model.RateEntry]
	agile           atomic.Pointer[model.TimeOfUseTable]
	connected       atomic.Bool
}

// New returns an empty store.
func New() *Store { return &Store{} }

func load(p *atomic.Pointer[model.RateEntry]) model.RateEntry {
	if e := p.Load(); e != nil {
		return *e
	}
	return model.RateEntry{}
}

func store(p *atomic.Pointer[model.RateEntry], e model.RateEntry) { p.Store(&e) }

func invalidate(p *atomic.Pointer[model.RateEntry]) {
	store(p, load(p).Invalidated())
}

func fuelIndex(f model.Fuel) int {
	if f == model.FuelElectricity {
		return 1
	}
	return 0
}

// TrackerToday returns the tracker rate in force today.
func (s *Store) TrackerToday(f model.Fuel) model.RateEntry {
	return load(&s.trackerToday[fuelIndex(f)])
}

// TrackerTomorrow returns the tracker rate published for tomorrow.
func (s *Store) TrackerTomorrow(f model.Fuel) model.RateEntry {
	return load(&s.trackerTomorrow[fuelIndex(f)])
}

// SetTrackerToday replaces today's tracker entry.
func (s *Store) SetTrackerToday(f model.Fuel, e model.RateEntry) {
	store(&s.trackerToday[fuelIndex(f)], e)
}

// SetTrackerTomorrow replaces tomorrow's tracker entry.
func (s *Store) SetTrackerTomorrow(f model.Fuel, e model.RateEntry) {
	store(&s.trackerTomorrow[fuelIndex(f)], e)
}

// Flexible returns the active flexible rate.
func (s *Store) Flexible(f model.Fuel) model.RateEntry {
	return load(&s.flexible[fuelIndex(f)])
}

// SetFlexible replaces the flexible entry.
func (s *Store) SetFlexible(f model.Fuel, e model.RateEntry) {
	store(&s.flexible[fuelIndex(f)], e)
}

var emptyTable model.TimeOfUseTable

// Agile returns the current half-hourly table. The returned table is shared
// and must not be modified.
func (s *Store) Agile() *model.TimeOfUseTable {
	if t := s.agile.Load(); t != nil {
		return t
	}
	return &emptyTable
}

// SetAgile replaces the half-hourly table with a copy of t.
func (s *Store) SetAgile(t model.TimeOfUseTable) { s.agile.Store(&t) }

// InvalidateTracker clears today and tomorrow for the fuel.
func (s *Store) InvalidateTracker(f model.Fuel) {
	invalidate(&s.trackerToday[fuelIndex(f)])
	invalidate(&s.trackerTomorrow[fuelIndex(f)])
}

// InvalidateFlexible clears the flexible entry for the fuel.
func (s *Store) InvalidateFlexible(f model.Fuel) {
	invalidate(&s.flexible[fuelIndex(f)])
}

// InvalidateAgile marks the half-hourly table as needing a fetch. The slot
// mask is kept until the next parse resets it.
func (s *Store) InvalidateAgile() {
	t := *s.Agile()
	t.Valid = false
	s.SetAgile(t)
}

// Invalidate clears every entry of the category.
func (s *Store) Invalidate(c model.Category) {
	switch c.Tariff {
	case model.TariffTracker:
		s.InvalidateTracker(c.Fuel)
	case model.TariffFlexible:
		s.InvalidateFlexible(c.Fuel)
	case model.TariffAgile:
		s.InvalidateAgile()
	}
}

// Valid reports whether the category holds an obtained rate. For the tracker
// tariff only today's entry counts.
func (s *Store) Valid(c model.Category) bool {
	switch c.Tariff {
	case model.TariffTracker:
		return s.TrackerToday(c.Fuel).Valid
	case model.TariffFlexible:
		return s.Flexible(c.Fuel).Valid
	case model.TariffAgile:
		return s.Agile().Valid
	}
	return false
}

// Connected reports whether the last network exchange succeeded.
func (s *Store) Connected() bool { return s.connected.Load() }

// SetConnected records the network state.
func (s *Store) SetConnected(v bool) { s.connected.Store(v) }

// Snapshot is a copy of every cached value.
type Snapshot struct {
	TrackerToday    map[model.Fuel]model.RateEntry
	TrackerTomorrow map[model.Fuel]model.RateEntry
	Flexible        map[model.Fuel]model.RateEntry
	Agile           model.TimeOfUseTable
	Connected       bool
}

// Snapshot copies the store for reporting. It allocates and is not meant for
// the display loop.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		TrackerToday:    make(map[model.Fuel]model.RateEntry, 2),
		TrackerTomorrow: make(map[model.Fuel]model.RateEntry, 2),
		Flexible:        make(map[model.Fuel]model.RateEntry, 2),
		Agile:           *s.Agile(),
		Connected:       s.Connected(),
	}
	for _, f := range model.Fuels {
		snap.TrackerToday[f] = s.TrackerToday(f)
		snap.TrackerTomorrow[f] = s.TrackerTomorrow(f)
		snap.Flexible[f] = s.Flexible(f)
	}
	return snap
}
