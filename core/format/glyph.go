package format

import "strconv"

// Glyph is a symbol shown on one display digit.
type Glyph uint8

const (
	// Digits 0..9 are their own values.
	Blank Glyph = 10
	Minus Glyph = 11
)

// Digit returns the glyph for n modulo 10. Negative values use their
// magnitude.
func Digit(n int64) Glyph {
	if n < 0 {
		n = -n
	}
	return Glyph(n % 10)
}

// IsDigit reports whether g is one of 0..9.
func (g Glyph) IsDigit() bool { return g < 10 }

func (g Glyph) String() string {
	switch {
	case g.IsDigit():
		return strconv.Itoa(int(g))
	case g == Blank:
		return " "
	case g == Minus:
		return "-"
	default:
		return "?"
	}
}

// DecimalPoint is the digit a decimal point follows, or PointOff.
type DecimalPoint uint8

const (
	PointOff DecimalPoint = iota
	PointAfter1
	PointAfter2
	PointAfter3
)

// Lit reports whether the point is shown on digit i (0-based).
func (p DecimalPoint) Lit(i int) bool { return p != PointOff && int(p) == i+1 }

// Digits is the content of one three digit group.
type Digits struct {
	Glyphs [3]Glyph
	Point  DecimalPoint
}

func (d Digits) String() string {
	var b []byte
	for i, g := range d.Glyphs {
		b = append(b, g.String()...)
		if d.Point.Lit(i) {
			b = append(b, '.')
		}
	}
	return string(b)
}

// BlankDigits shows nothing.
var BlankDigits = Digits{Glyphs: [3]Glyph{Blank, Blank, Blank}}
