package hardware

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kilianp07/tariffticker/core/display"
)

// SimBus records what a real display would show. The last pattern driven at
// each position is kept so a snapshot shows the whole frame even though only
// one position is lit at a time.
type SimBus struct {
	mu       sync.Mutex
	selected int
	enabled  bool
	cells    [display.Banks][display.Positions]byte
	blanks   atomic.Int64
	drives   atomic.Int64
}

// NewSimBus returns a blank simulated display.
func NewSimBus() *SimBus { return &SimBus{selected: -1} }

func (b *SimBus) Blank() error {
	b.mu.Lock()
	b.enabled = false
	b.mu.Unlock()
	b.blanks.Add(1)
	return nil
}

func (b *SimBus) Select(pos int) error {
	if pos < 0 || pos >= display.Positions {
		return fmt.Errorf("position %d out of range", pos)
	}
	b.mu.Lock()
	b.selected = pos
	b.enabled = true
	b.mu.Unlock()
	return nil
}

func (b *SimBus) Drive(patterns [display.Banks]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return fmt.Errorf("drive without a selected position")
	}
	for bank, p := range patterns {
		b.cells[bank][b.selected] = p
	}
	b.drives.Add(1)
	return nil
}

// Counts returns how many times the bus was blanked and driven.
func (b *SimBus) Counts() (blanks, drives int64) {
	return b.blanks.Load(), b.drives.Load()
}

// Pattern returns the last segment pattern seen at bank and pos.
func (b *SimBus) Pattern(bank, pos int) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cells[bank][pos]
}

// Snapshot renders the positions in mask as text, one line per bank.
func (b *SimBus) Snapshot(mask uint16) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for bank := 0; bank < display.Banks; bank++ {
		if bank > 0 {
			sb.WriteByte('\n')
		}
		for pos := 0; pos < display.Positions; pos++ {
			if mask&(1<<uint(pos)) == 0 {
				continue
			}
			g, dp, ok := display.Decode(b.cells[bank][pos])
			if !ok {
				sb.WriteByte('?')
				continue
			}
			sb.WriteString(g.String())
			if dp {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

// SimButton is a button that can be pressed from code.
type SimButton struct{ held atomic.Bool }

// Set presses or releases the button.
func (b *SimButton) Set(held bool) { b.held.Store(held) }

func (b *SimButton) Held() bool { return b.held.Load() }
