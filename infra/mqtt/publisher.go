package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/tariffticker/core/events"
	"github.com/kilianp07/tariffticker/core/model"
	coremqtt "github.com/kilianp07/tariffticker/core/mqtt"
	"github.com/kilianp07/tariffticker/infra/logger"
	"github.com/kilianp07/tariffticker/internal/eventbus"
)

// RatePayload is the retained message of one category.
type RatePayload struct {
	Tariff   string       `json:"tariff"`
	Fuel     string       `json:"fuel"`
	Valid    bool         `json:"valid"`
	Rate     *json.Number `json:"rate,omitempty"`
	Tomorrow *json.Number `json:"tomorrow,omitempty"`
	Summary  *Summary     `json:"summary,omitempty"`
	CycleID  string       `json:"cycle_id,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Time     time.Time    `json:"time"`
}

// Summary describes the day's agile slots.
type Summary struct {
	Slots int         `json:"slots"`
	Min   json.Number `json:"min"`
	Max   json.Number `json:"max"`
	Mean  float64     `json:"mean"`
}

func number(r model.Rate) json.Number { return json.Number(r.String()) }

func entryNumber(e model.RateEntry) *json.Number {
	if !e.Valid {
		return nil
	}
	n := number(e.Rate)
	return &n
}

// Topic returns the retained topic of a category.
func Topic(prefix string, c model.Category) string {
	return prefix + "/" + c.Tariff.String() + "/" + c.Fuel.String()
}

// SlotsTopic carries the agile table, one value per half hour.
func SlotsTopic(prefix string) string { return prefix + "/agile/electricity/slots" }

// NewRatePayload builds the message for a parsed category.
func NewRatePayload(u events.RateUpdate) RatePayload {
	p := RatePayload{
		Tariff:   u.Category.Tariff.String(),
		Fuel:     u.Category.Fuel.String(),
		Valid:    u.Entry.Valid,
		Rate:     entryNumber(u.Entry),
		Tomorrow: entryNumber(u.Tomorrow),
		CycleID:  u.CycleID,
		Time:     u.Time.UTC(),
	}
	if u.Table != nil {
		s := u.Table.Summary()
		if s.Slots > 0 {
			p.Summary = &Summary{Slots: s.Slots, Min: number(s.Min), Max: number(s.Max), Mean: s.Mean}
		}
	}
	return p
}

// SlotValues lists the table's rates with null for missing slots.
func SlotValues(t *model.TimeOfUseTable) []*json.Number {
	out := make([]*json.Number, model.SlotsPerDay)
	for k := range out {
		out[k] = entryNumber(t.Slot(k))
	}
	return out
}

// PublishRate sends the category's retained message, plus the slot table
// for agile updates.
func (p *PahoPublisher) PublishRate(u events.RateUpdate) error {
	b, err := json.Marshal(NewRatePayload(u))
	if err != nil {
		return err
	}
	if err := p.publish(Topic(p.prefix, u.Category), b); err != nil {
		return err
	}
	if u.Table == nil {
		return nil
	}
	b, err = json.Marshal(SlotValues(u.Table))
	if err != nil {
		return err
	}
	return p.publish(SlotsTopic(p.prefix), b)
}

// PublishInvalidation marks every cleared category as not valid.
func (p *PahoPublisher) PublishInvalidation(inv events.Invalidation) error {
	for _, c := range inv.Categories {
		b, err := json.Marshal(RatePayload{
			Tariff: c.Tariff.String(),
			Fuel:   c.Fuel.String(),
			Reason: inv.Reason,
			Time:   inv.Time.UTC(),
		})
		if err != nil {
			return err
		}
		if err := p.publish(Topic(p.prefix, c), b); err != nil {
			return err
		}
	}
	return nil
}

// StartPublisher forwards bus events to pub until ctx is canceled. Publish
// failures are logged and the next event is still forwarded.
func StartPublisher(ctx context.Context, bus *eventbus.TypedBus[events.Event], pub coremqtt.Publisher) {
	if bus == nil || pub == nil {
		return
	}
	log := logger.New("mqtt_publisher")
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				var err error
				switch e := ev.(type) {
				case events.RateUpdate:
					err = pub.PublishRate(e)
				case events.Invalidation:
					err = pub.PublishInvalidation(e)
				}
				if err != nil {
					log.Warnf("forward %T: %v", ev, err)
				}
			}
		}
	}()
}
