package display

import (
	"fmt"
	"time"

	"github.com/kilianp07/tariffticker/core/model"
)

const (
	// Banks is the number of independently driven segment banks.
	Banks = 2
	// Positions is the width of the anode shift register.
	Positions = 16
	// GroupWidth is the number of digits a rate occupies.
	GroupWidth = 3
)

// Source selects what a group shows.
type Source int

const (
	SourceBlank Source = iota
	SourceTracker
	SourceTrackerTomorrow
	SourceFlexible
	SourceAgile
)

func (s Source) String() string {
	switch s {
	case SourceTracker:
		return "tracker"
	case SourceTrackerTomorrow:
		return "tracker_tomorrow"
	case SourceFlexible:
		return "flexible"
	case SourceAgile:
		return "agile"
	default:
		return "blank"
	}
}

// ParseSource maps a configuration name to a Source. The empty string is
// blank.
func ParseSource(s string) (Source, error) {
	switch s {
	case "", "blank":
		return SourceBlank, nil
	case "tracker":
		return SourceTracker, nil
	case "tracker_tomorrow":
		return SourceTrackerTomorrow, nil
	case "flexible":
		return SourceFlexible, nil
	case "agile":
		return SourceAgile, nil
	}
	return SourceBlank, fmt.Errorf("unknown display source %q", s)
}

// GroupConfig places one rate on three consecutive positions of a bank.
// Holding Button switches from Primary to Alternate, provided the tariff
// named by Requires is enabled.
type GroupConfig struct {
	Bank      int    `json:"bank"`
	First     int    `json:"first"`
	Fuel      string `json:"fuel"`
	Primary   string `json:"primary"`
	Alternate string `json:"alternate"`
	Button    string `json:"button"`
	Requires  string `json:"requires"`
}

// Config tunes the renderer.
type Config struct {
	PeriodMicros int `json:"period_us"`
	// Levels is the number of ticks each position is held for, and so the
	// number of brightness steps.
	Levels       int           `json:"levels"`
	PositionMask uint16        `json:"position_mask"`
	Groups       []GroupConfig `json:"groups"`
}

// DefaultGroups is the layout of the two bank ticker: tomorrow's tracker
// prices on the top bank and today's on the bottom one, with the mode button
// showing agile and flexible prices instead.
func DefaultGroups() []GroupConfig {
	return []GroupConfig{
		{Bank: 0, First: 0, Fuel: "gas", Primary: "tracker_tomorrow", Alternate: "blank", Button: "mode", Requires: "agile"},
		{Bank: 0, First: 3, Fuel: "electricity", Primary: "tracker_tomorrow", Alternate: "agile", Button: "mode", Requires: "agile"},
		{Bank: 1, First: 0, Fuel: "gas", Primary: "tracker", Alternate: "flexible", Button: "mode", Requires: "flexible"},
		{Bank: 1, First: 3, Fuel: "electricity", Primary: "tracker", Alternate: "flexible", Button: "mode", Requires: "flexible"},
	}
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PeriodMicros <= 0 {
		c.PeriodMicros = 200
	}
	if c.Levels <= 0 {
		c.Levels = 4
	}
	if c.PositionMask == 0 {
		c.PositionMask = 0x3F
	}
	if len(c.Groups) == 0 {
		c.Groups = DefaultGroups()
	}
}

// Period returns the tick period.
func (c Config) Period() time.Duration {
	return time.Duration(c.PeriodMicros) * time.Microsecond
}

// Validate checks the group layout.
func (c Config) Validate() error {
	if c.PositionMask == 0 {
		return fmt.Errorf("position_mask selects no position")
	}
	if c.Levels < 1 {
		return fmt.Errorf("levels must be positive")
	}
	used := make(map[[2]int]bool)
	for i, g := range c.Groups {
		if _, err := compileGroup(g); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		for p := g.First; p < g.First+GroupWidth; p++ {
			if used[[2]int{g.Bank, p}] {
				return fmt.Errorf("group %d: position %d of bank %d already used", i, p, g.Bank)
			}
			used[[2]int{g.Bank, p}] = true
		}
	}
	return nil
}

type group struct {
	bank      int
	first     int
	fuel      model.Fuel
	primary   Source
	alternate Source
	button    string
	requires  *model.Tariff
}

func compileGroup(g GroupConfig) (group, error) {
	out := group{bank: g.Bank, first: g.First, button: g.Button}
	if g.Bank < 0 || g.Bank >= Banks {
		return out, fmt.Errorf("bank %d out of range", g.Bank)
	}
	if g.First < 0 || g.First+GroupWidth > Positions {
		return out, fmt.Errorf("first position %d out of range", g.First)
	}
	var err error
	if out.fuel, err = model.ParseFuel(g.Fuel); err != nil {
		return out, err
	}
	if out.primary, err = ParseSource(g.Primary); err != nil {
		return out, err
	}
	if out.alternate, err = ParseSource(g.Alternate); err != nil {
		return out, err
	}
	if out.primary == SourceAgile || out.alternate == SourceAgile {
		if out.fuel != model.FuelElectricity {
			return out, fmt.Errorf("agile is only available for electricity")
		}
	}
	if g.Requires != "" {
		t, err := model.ParseTariff(g.Requires)
		if err != nil {
			return out, err
		}
		out.requires = &t
	}
	return out, nil
}
