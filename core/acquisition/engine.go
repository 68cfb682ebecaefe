// Package acquisition fetches tariff feeds, parses them into the rate store
// and decides when cached rates must be fetched again.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/events"
	"github.com/kilianp07/tariffticker/core/logger"
	"github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/core/rates"
	"github.com/kilianp07/tariffticker/internal/eventbus"
)

// Response is what a Fetcher returns for a successful exchange, whatever its
// HTTP status.
type Response struct {
	Status int
	Body   []byte
	// Date is the raw Date header, used to synchronise the clock.
	Date string
}

// Fetcher retrieves a feed. An error means no response was received.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Engine runs the fetch and refresh cycle for every enabled endpoint.
type Engine struct {
	store     *rates.Store
	clock     *clock.Clock
	fetcher   Fetcher
	endpoints []Endpoint
	cats      []model.Category
	agile     bool
	opts      ParseOptions
	retry     RetryPolicy
	poll      time.Duration
	timeout   time.Duration
	log       logger.Logger
	sink      metrics.MetricsSink
	bus       *eventbus.TypedBus[events.Event]

	mu       sync.Mutex
	states   map[model.Category]State
	primed   bool
	lastHour int
	lastDay  string
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithSink records fetch and rate metrics.
func WithSink(s metrics.MetricsSink) Option { return func(e *Engine) { e.sink = s } }

// WithBus publishes rate events.
func WithBus(b *eventbus.TypedBus[events.Event]) Option { return func(e *Engine) { e.bus = b } }

// WithRetryPolicy overrides the configured retry policy.
func WithRetryPolicy(p RetryPolicy) Option { return func(e *Engine) { e.retry = p } }

// WithPollInterval overrides how often the clock is checked for an hour
// change.
func WithPollInterval(d time.Duration) Option { return func(e *Engine) { e.poll = d } }

// NewEngine creates an Engine. cfg must already carry its defaults.
func NewEngine(cfg Config, store *rates.Store, clk *clock.Clock, fetcher Fetcher, opts ...Option) (*Engine, error) {
	if store == nil || clk == nil || fetcher == nil {
		return nil, fmt.Errorf("acquisition: store, clock and fetcher are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:     store,
		clock:     clk,
		fetcher:   fetcher,
		endpoints: cfg.Endpoints(),
		cats:      cfg.Categories(),
		agile:     cfg.Agile.Enabled,
		opts:      ParseOptions{PaymentMethod: cfg.PaymentMethod, ExcludeVAT: cfg.ExcludeVAT},
		retry:     cfg.Retry(),
		poll:      time.Duration(cfg.PollIntervalSeconds) * time.Second,
		timeout:   time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		log:       logger.NopLogger{},
		sink:      metrics.NopSink{},
		states:    make(map[model.Category]State),
	}
	for _, o := range opts {
		o(e)
	}
	if e.poll <= 0 {
		e.poll = 10 * time.Second
	}
	for _, c := range e.cats {
		e.states[c] = StateNeedsFetch
	}
	return e, nil
}

// Endpoints returns the feeds the engine fetches.
func (e *Engine) Endpoints() []Endpoint { return e.endpoints }

// Categories returns the enabled cache cells.
func (e *Engine) Categories() []model.Category { return e.cats }

// State returns the fetch state of a category.
func (e *Engine) State(c model.Category) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[c]
}

func (e *Engine) setState(c model.Category, s State) {
	e.mu.Lock()
	e.states[c] = s
	e.mu.Unlock()
}

// Run fetches every missing category, then waits for the next hour boundary,
// applies the refresh policy and starts again. A pass that ends in a new hour
// starts over at once. It returns when ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	for {
		if err := e.FetchPending(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		// A pass that straddled an hour boundary may have invalidated what
		// it just fetched.
		if e.clock.Synchronized() && e.CheckRollover(e.clock.Now()).HourChanged {
			continue
		}
		if err := e.waitForHour(ctx, ticker.C); err != nil {
			return err
		}
	}
}

// waitForHour blocks until the refresh policy has run for a new hour.
func (e *Engine) waitForHour(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
		if !e.clock.Synchronized() {
			// Nothing was fetched successfully yet, try again.
			return nil
		}
		if e.CheckRollover(e.clock.Now()).HourChanged {
			return nil
		}
	}
}

// FetchPending fetches the categories whose cached entry is not valid.
func (e *Engine) FetchPending(ctx context.Context) error {
	var errs []error
	for _, ep := range e.endpoints {
		if e.store.Valid(ep.Category) {
			e.setState(ep.Category, StateCached)
			continue
		}
		if err := e.FetchEndpoint(ctx, ep); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// FetchOnce fetches every endpoint once, whatever the cache holds.
func (e *Engine) FetchOnce(ctx context.Context) error {
	var errs []error
	for _, ep := range e.endpoints {
		if err := e.FetchEndpoint(ctx, ep); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// FetchEndpoint runs one fetch cycle for the endpoint, retrying according to
// the retry policy, and stores what the document yields.
func (e *Engine) FetchEndpoint(ctx context.Context, ep Endpoint) error {
	cat := ep.Category
	cycle := uuid.NewString()
	start := time.Now()
	attempts := 0
	e.setState(cat, StateFetching)

	resp, err := retry(ctx, e.retry, func() (Response, error) {
		attempts++
		return e.attempt(ctx, ep.URL)
	}, func(err error, next time.Duration) {
		e.setState(cat, StateFetchFailed)
		e.log.Warnf("fetch %s attempt %d failed, retrying in %s: %v", cat, attempts, next, err)
		e.setState(cat, StateFetching)
	})

	ev := metrics.FetchEvent{
		CycleID:  cycle,
		Category: cat,
		Attempts: attempts,
		Duration: time.Since(start),
		Status:   resp.Status,
		Time:     time.Now(),
	}
	if err != nil {
		e.setState(cat, StateFetchFailed)
		ev.Err = err.Error()
		e.recordFetch(ev)
		return fmt.Errorf("fetch %s: %w", cat, err)
	}
	e.recordFetch(ev)
	e.setState(cat, StateParsed)

	if err := e.apply(cycle, cat, resp.Body); err != nil {
		e.log.Errorf("parse %s: %v", cat, err)
		e.settle(cat)
		return fmt.Errorf("parse %s: %w", cat, err)
	}
	e.settle(cat)
	return nil
}

func (e *Engine) settle(cat model.Category) {
	if e.store.Valid(cat) {
		e.setState(cat, StateCached)
	} else {
		e.setState(cat, StateNeedsFetch)
	}
}

// attempt performs a single request bounded by the request timeout.
func (e *Engine) attempt(ctx context.Context, url string) (Response, error) {
	reqCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	resp, err := e.fetcher.Fetch(reqCtx, url)
	if err != nil {
		e.store.SetConnected(false)
		return Response{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	e.store.SetConnected(true)
	if resp.Date != "" {
		synced, err := e.clock.SyncFromHeader(resp.Date)
		if err != nil {
			e.log.Warnf("clock sync: %v", err)
		} else if synced {
			e.log.Infof("clock synchronized to %s", e.clock.Now().Format(time.RFC3339))
		}
	}
	if resp.Status < 200 || resp.Status > 299 {
		return resp, fmt.Errorf("%w: %d", ErrStatus, resp.Status)
	}
	return resp, nil
}

// apply parses body and writes the matches to the store. Entries without a
// match keep their cached value.
func (e *Engine) apply(cycle string, cat model.Category, body []byte) error {
	if !e.clock.Synchronized() {
		return ErrTimeNotSynchronized
	}
	doc, err := DecodeDocument(body)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	update := events.RateUpdate{CycleID: cycle, Category: cat, Time: now}
	rateEv := metrics.RateEvent{CycleID: cycle, Category: cat, Time: now}
	skipped := 0

	switch cat.Tariff {
	case model.TariffTracker:
		res, err := ParseTracker(doc, now, e.opts)
		if err != nil {
			return err
		}
		if res.Today.Valid {
			e.store.SetTrackerToday(cat.Fuel, res.Today)
		}
		if res.Tomorrow.Valid {
			e.store.SetTrackerTomorrow(cat.Fuel, res.Tomorrow)
		}
		update.Entry, update.Tomorrow = res.Today, res.Tomorrow
		rateEv.Entry, rateEv.Tomorrow = res.Today, res.Tomorrow
		skipped = res.Skipped
	case model.TariffFlexible:
		res, err := ParseFlexible(doc, now, e.opts)
		if err != nil {
			return err
		}
		if res.Entry.Valid {
			e.store.SetFlexible(cat.Fuel, res.Entry)
		}
		update.Entry, rateEv.Entry = res.Entry, res.Entry
		skipped = res.Skipped
	case model.TariffAgile:
		res, err := ParseAgile(doc, now, e.opts)
		if err != nil {
			return err
		}
		e.store.SetAgile(res.Table)
		tbl := res.Table
		sum := tbl.Summary()
		update.Table = &tbl
		update.Entry = tbl.Slot(model.SlotOf(now))
		rateEv.Entry, rateEv.Summary = update.Entry, &sum
		skipped = res.Skipped
	}

	if skipped > 0 {
		e.log.Warnf("%s: skipped %d malformed entries", cat, skipped)
	}
	if !update.Entry.Valid {
		e.log.Warnf("%s: no rate in force found", cat)
	}
	e.log.Infow("rates parsed", map[string]any{
		"cycle":    cycle,
		"category": cat.String(),
		"rate":     update.Entry.Rate.String(),
		"valid":    update.Entry.Valid,
	})
	if e.bus != nil {
		e.bus.Publish(update)
	}
	if err := e.sink.RecordRate(rateEv); err != nil {
		e.log.Warnf("record rate: %v", err)
	}
	return nil
}

func (e *Engine) recordFetch(ev metrics.FetchEvent) {
	if r, ok := e.sink.(metrics.FetchRecorder); ok {
		if err := r.RecordFetch(ev); err != nil {
			e.log.Warnf("record fetch: %v", err)
		}
	}
}
