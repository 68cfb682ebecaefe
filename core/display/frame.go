package display

import "github.com/kilianp07/tariffticker/core/format"

// Cell is the content of one digit position.
type Cell struct {
	Glyph format.Glyph
	DP    bool
}

// Frame holds every position of both banks. It is rebuilt wholesale once per
// multiplex cycle.
type Frame [Banks][Positions]Cell

var blankFrame = func() Frame {
	var f Frame
	for b := range f {
		for p := range f[b] {
			f[b][p].Glyph = format.Blank
		}
	}
	return f
}()

// Put writes d on the three positions starting at first.
func (f *Frame) Put(bank, first int, d format.Digits) {
	for i, g := range d.Glyphs {
		f[bank][first+i] = Cell{Glyph: g, DP: d.Point.Lit(i)}
	}
}

// Patterns returns the segment patterns of both banks at pos.
func (f *Frame) Patterns(pos int) [Banks]byte {
	var out [Banks]byte
	for b := range out {
		c := f[b][pos]
		out[b] = Segments(c.Glyph, c.DP)
	}
	return out
}

// String renders the populated positions of each bank, one line per bank.
func (f *Frame) String(mask uint16) string {
	var b []byte
	for bank := range f {
		if bank > 0 {
			b = append(b, '\n')
		}
		for p := 0; p < Positions; p++ {
			if mask&(1<<uint(p)) == 0 {
				continue
			}
			c := f[bank][p]
			b = append(b, c.Glyph.String()...)
			if c.DP {
				b = append(b, '.')
			}
		}
	}
	return string(b)
}

// Debouncer accepts a new input state only after two equal consecutive
// samples.
type Debouncer struct {
	state bool
	last  bool
}

// Sample feeds one reading and returns the debounced state.
func (d *Debouncer) Sample(v bool) bool {
	if v == d.last {
		d.state = v
	}
	d.last = v
	return d.state
}

// State returns the debounced state without sampling.
func (d *Debouncer) State() bool { return d.state }
