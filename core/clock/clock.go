// Package clock provides the wall clock used for tariff date matching. The
// clock is not trusted until it has been aligned with a server Date header.
package clock

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrNotSynchronized is returned when the clock has not been aligned yet.
var ErrNotSynchronized = errors.New("time not synchronized")

// Clock is a UTC wall clock corrected by an offset learned from the network.
type Clock struct {
	now    func() time.Time
	offset atomic.Int64
	synced atomic.Bool
}

// New returns an unsynchronised clock backed by time.Now.
func New() *Clock { return &Clock{now: time.Now} }

// NewWithSource returns a clock reading from now. It is mainly used in tests.
func NewWithSource(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns the corrected time in UTC.
func (c *Clock) Now() time.Time {
	return c.now().Add(time.Duration(c.offset.Load())).UTC()
}

// Synchronized reports whether the clock has been aligned.
func (c *Clock) Synchronized() bool { return c.synced.Load() }

// MarkSynchronized trusts the local clock as is.
func (c *Clock) MarkSynchronized() { c.synced.Store(true) }

// SyncFromHeader aligns the clock with an HTTP Date header value. Only the
// first successful call changes the offset; later calls are ignored and
// report false.
func (c *Clock) SyncFromHeader(date string) (bool, error) {
	if c.synced.Load() {
		return false, nil
	}
	t, err := http.ParseTime(date)
	if err != nil {
		return false, fmt.Errorf("parse date header %q: %w", date, err)
	}
	c.offset.Store(int64(t.Sub(c.now())))
	c.synced.Store(true)
	return true, nil
}
