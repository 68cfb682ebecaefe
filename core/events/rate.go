package events

import (
	"time"

	"github.com/kilianp07/tariffticker/core/model"
)

// RateUpdate is published after a category has been parsed. Entry holds the
// active rate; for the tracker tariff Tomorrow holds the next day's rate and
// for the agile tariff Table holds the day's slots.
type RateUpdate struct {
	CycleID  string
	Category model.Category
	Entry    model.RateEntry
	Tomorrow model.RateEntry
	Table    *model.TimeOfUseTable
	Time     time.Time
}

// Invalidation is published when the refresh policy clears categories.
type Invalidation struct {
	Reason     string
	Categories []model.Category
	Time       time.Time
}

// Event is the sum of the rate bus event types.
type Event interface{ isEvent() }

func (RateUpdate) isEvent()   {}
func (Invalidation) isEvent() {}
