package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// Rate is a unit price in integer hundredths (pence with two implied decimal
// places). Zero is a valid price.
type Rate int64

// RateFromDecimal converts a feed value to a Rate, truncating toward zero
// beyond the second decimal place.
func RateFromDecimal(d decimal.Decimal) Rate {
	v := d.Shift(2).Truncate(0)
	if v.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return Rate(math.MaxInt64)
	}
	if v.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return Rate(math.MinInt64)
	}
	return Rate(v.IntPart())
}

// RateFromFloat converts a float value using the same truncation as
// RateFromDecimal.
func RateFromFloat(f float64) Rate {
	return RateFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the rate as an exact decimal value.
func (r Rate) Decimal() decimal.Decimal { return decimal.New(int64(r), -2) }

// Float64 returns the rate in whole units.
func (r Rate) Float64() float64 { return r.Decimal().InexactFloat64() }

func (r Rate) String() string { return r.Decimal().StringFixed(2) }

// RateEntry is a cached rate and whether it has been obtained. Entries are
// immutable values and are replaced wholesale.
type RateEntry struct {
	Rate  Rate
	Valid bool
}

// Invalidated returns a copy of the entry marked as not obtained.
func (e RateEntry) Invalidated() RateEntry {
	return RateEntry{Rate: e.Rate}
}
