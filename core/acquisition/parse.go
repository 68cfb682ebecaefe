package acquisition

import (
	"strconv"
	"time"

	"github.com/kilianp07/tariffticker/core/model"
)

const day = 24 * time.Hour

// ParseOptions tune how documents are read.
type ParseOptions struct {
	PaymentMethod string
	ExcludeVAT    bool
}

// TrackerResult holds the rates found for today and tomorrow. An entry that
// is not Valid had no match and must not replace the cached one.
type TrackerResult struct {
	Today    model.RateEntry
	Tomorrow model.RateEntry
	Skipped  int
}

// ParseTracker finds the daily rates around now. An entry starting in
// (now-24h, now] is today's rate and one starting in (now, now+24h] is
// tomorrow's. Entries are expected in chronological order and the last
// match in each window wins.
func ParseTracker(doc *Document, now time.Time, opts ParseOptions) (TrackerResult, error) {
	var res TrackerResult
	results, err := doc.results()
	if err != nil {
		return res, err
	}
	for _, r := range results {
		from, ok := r.validFrom()
		rate, okRate := r.value(opts.ExcludeVAT)
		if !ok || !okRate {
			res.Skipped++
			continue
		}
		switch {
		case from.After(now.Add(-day)) && !from.After(now):
			res.Today = model.RateEntry{Rate: rate, Valid: true}
		case from.After(now) && !from.After(now.Add(day)):
			res.Tomorrow = model.RateEntry{Rate: rate, Valid: true}
		}
	}
	return res, nil
}

// FlexibleResult holds the active flexible rate.
type FlexibleResult struct {
	Entry   model.RateEntry
	Skipped int
}

// ParseFlexible returns the first entry, in document order, that has already
// started and matches the payment method. Documents list the newest entry
// first.
func ParseFlexible(doc *Document, now time.Time, opts ParseOptions) (FlexibleResult, error) {
	var res FlexibleResult
	results, err := doc.results()
	if err != nil {
		return res, err
	}
	for _, r := range results {
		from, ok := r.validFrom()
		rate, okRate := r.value(opts.ExcludeVAT)
		if !ok || !okRate {
			res.Skipped++
			continue
		}
		if opts.PaymentMethod != "" && (r.PaymentMethod == nil || *r.PaymentMethod != opts.PaymentMethod) {
			continue
		}
		if !from.After(now) {
			res.Entry = model.RateEntry{Rate: rate, Valid: true}
			break
		}
	}
	return res, nil
}

// AgileResult holds the half-hourly table for today.
type AgileResult struct {
	Table   model.TimeOfUseTable
	Skipped int
}

// ParseAgile fills a fresh table from the entries whose start date is today.
// Dates are compared on the first ten characters of the timestamp so that
// entries for the neighbouring days are ignored. The table is marked valid
// whenever the document has results, even if some slots stay empty.
func ParseAgile(doc *Document, now time.Time, opts ParseOptions) (AgileResult, error) {
	var res AgileResult
	results, err := doc.results()
	if err != nil {
		return res, err
	}
	today := now.UTC().Format("2006-01-02")
	for _, r := range results {
		rate, okRate := r.value(opts.ExcludeVAT)
		if r.ValidFrom == nil || !okRate {
			res.Skipped++
			continue
		}
		s := *r.ValidFrom
		if len(s) < 16 || s[:10] != today {
			continue
		}
		hour, errH := strconv.Atoi(s[11:13])
		minute, errM := strconv.Atoi(s[14:16])
		if errH != nil || errM != nil {
			res.Skipped++
			continue
		}
		k, ok := model.SlotIndex(hour, minute)
		if !ok {
			continue
		}
		res.Table.Set(k, rate)
	}
	res.Table.Valid = true
	return res, nil
}
