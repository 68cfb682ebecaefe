package display

import "github.com/kilianp07/tariffticker/core/format"

// SegmentDP is the decimal point line. Bits 0 to 6 are segments a to g.
const SegmentDP byte = 0x80

var segmentTable = [...]byte{
	0x3F, 0x06, 0x5B, 0x4F, 0x66, 0x6D, 0x7C, 0x07, 0x7F, 0x67, // 0-9
	0x00, // blank
	0x40, // minus
}

// Segments returns the lit segments of a glyph. Unknown glyphs are blank.
func Segments(g format.Glyph, dp bool) byte {
	var p byte
	if int(g) < len(segmentTable) {
		p = segmentTable[g]
	}
	if dp {
		p |= SegmentDP
	}
	return p
}

// Decode maps a segment pattern back to its glyph. ok is false for patterns
// that are not in the table.
func Decode(p byte) (g format.Glyph, dp bool, ok bool) {
	dp = p&SegmentDP != 0
	p &^= SegmentDP
	for i, s := range segmentTable {
		if s == p {
			return format.Glyph(i), dp, true
		}
	}
	return format.Blank, dp, false
}
