// Package format turns rates into three digit display content.
package format

import "github.com/kilianp07/tariffticker/core/model"

// Format converts a rate to three glyphs and a decimal point. Values outside
// the displayable range are shown as off-scale markers.
func Format(r model.Rate) Digits {
	v := int64(r)
	switch {
	case v >= 100000:
		return Digits{Glyphs: [3]Glyph{Blank, 1, Blank}, Point: PointAfter3}
	case v >= 10000:
		return Digits{Glyphs: [3]Glyph{Digit(v / 10000), Digit(v / 1000), Digit(v / 100)}, Point: PointAfter3}
	case v >= 1000:
		return Digits{Glyphs: [3]Glyph{Digit(v / 1000), Digit(v / 100), Digit(v / 10)}, Point: PointAfter2}
	case v >= 0:
		return Digits{Glyphs: [3]Glyph{Digit(v / 100), Digit(v / 10), Digit(v)}, Point: PointAfter1}
	case v > -1000:
		return Digits{Glyphs: [3]Glyph{Minus, Digit(v / 100), Digit(v / 10)}, Point: PointAfter2}
	case v > -10000:
		return Digits{Glyphs: [3]Glyph{Minus, Digit(v / 1000), Digit(v / 100)}, Point: PointAfter3}
	default:
		return Digits{Glyphs: [3]Glyph{Minus, 1, Blank}, Point: PointOff}
	}
}

// Preconditions are the states that must hold before a rate is shown.
type Preconditions struct {
	Connected    bool
	Synchronized bool
}

// Status returns the diagnostic pattern shown instead of a number. Each digit
// stands for one precondition in order: network connected, clock
// synchronised, rate obtained. A dash means the condition holds, a blank that
// it failed, so the number of leading dashes tells how far start-up got.
func Status(p Preconditions, obtained bool) Digits {
	return Digits{Glyphs: [3]Glyph{mark(p.Connected), mark(p.Synchronized), mark(obtained)}}
}

func mark(ok bool) Glyph {
	if ok {
		return Minus
	}
	return Blank
}

// Entry formats e when every precondition holds and the entry is valid, and
// the status pattern otherwise.
func Entry(e model.RateEntry, p Preconditions) Digits {
	if p.Connected && p.Synchronized && e.Valid {
		return Format(e.Rate)
	}
	return Status(p, e.Valid)
}

// Slot formats slot k of t. The rate counts as obtained once the table has
// been fetched, so a slot missing from the feed shows three dashes.
func Slot(t *model.TimeOfUseTable, k int, p Preconditions) Digits {
	e := t.Slot(k)
	if p.Connected && p.Synchronized && e.Valid {
		return Format(e.Rate)
	}
	return Status(p, t.Valid)
}
