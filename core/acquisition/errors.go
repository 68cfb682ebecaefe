package acquisition

import (
	"errors"

	"github.com/kilianp07/tariffticker/core/clock"
)

var (
	// ErrTransport wraps failures to reach the feed. They are retried.
	ErrTransport = errors.New("transport error")
	// ErrStatus reports a non-success HTTP status. It is retried like a
	// transport error.
	ErrStatus = errors.New("unexpected status")
	// ErrMissingField reports a document without the expected structure. The
	// cached value is kept.
	ErrMissingField = errors.New("missing field")
	// ErrTimeNotSynchronized suppresses date matching until the clock is set.
	ErrTimeNotSynchronized = clock.ErrNotSynchronized
)
