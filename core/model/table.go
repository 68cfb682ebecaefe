package model

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SlotsPerDay is the number of half-hour pricing slots in a day.
const SlotsPerDay = 48

// FullMask has one bit set for every slot of the day.
const FullMask uint64 = 1<<SlotsPerDay - 1

// TimeOfUseTable holds one day of half-hourly rates. A slot's rate is only
// meaningful when its bit in Mask is set. Valid records that a fetch cycle
// completed for the day.
type TimeOfUseTable struct {
	Rates [SlotsPerDay]Rate
	Mask  uint64
	Valid bool
}

// SlotIndex returns the slot for the given hour and minute. Only minutes 0 and
// 30 start a slot.
func SlotIndex(hour, minute int) (int, bool) {
	if hour < 0 || hour > 23 || (minute != 0 && minute != 30) {
		return 0, false
	}
	k := hour * 2
	if minute == 30 {
		k++
	}
	return k, true
}

// SlotOf returns the slot containing t.
func SlotOf(t time.Time) int {
	k := t.Hour() * 2
	if t.Minute() >= 30 {
		k++
	}
	return k
}

// Set writes the rate of slot k and marks it valid.
func (t *TimeOfUseTable) Set(k int, r Rate) {
	if k < 0 || k >= SlotsPerDay {
		return
	}
	t.Rates[k] = r
	t.Mask |= 1 << uint(k)
}

// SlotValid reports whether slot k holds a fetched rate.
func (t *TimeOfUseTable) SlotValid(k int) bool {
	if k < 0 || k >= SlotsPerDay {
		return false
	}
	return t.Mask&(1<<uint(k)) != 0
}

// HourValid reports whether both slots of the given hour hold fetched rates.
func (t *TimeOfUseTable) HourValid(hour int) bool {
	return t.SlotValid(hour*2) && t.SlotValid(hour*2+1)
}

// Slot returns the rate of slot k as an entry.
func (t *TimeOfUseTable) Slot(k int) RateEntry {
	if !t.Valid || !t.SlotValid(k) {
		return RateEntry{}
	}
	return RateEntry{Rate: t.Rates[k], Valid: true}
}

// Summary describes the valid slots of a table.
type Summary struct {
	Slots int
	Min   Rate
	Max   Rate
	Mean  float64
}

// Summary computes min, max and mean over the populated slots.
func (t *TimeOfUseTable) Summary() Summary {
	vals := make([]float64, 0, SlotsPerDay)
	for k := 0; k < SlotsPerDay; k++ {
		if t.SlotValid(k) {
			vals = append(vals, t.Rates[k].Float64())
		}
	}
	if len(vals) == 0 {
		return Summary{}
	}
	return Summary{
		Slots: len(vals),
		Min:   RateFromFloat(floats.Min(vals)),
		Max:   RateFromFloat(floats.Max(vals)),
		Mean:  stat.Mean(vals, nil),
	}
}
