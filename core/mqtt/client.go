// Package mqtt defines how rate updates leave the device over MQTT.
package mqtt

import "github.com/kilianp07/tariffticker/core/events"

// Publisher mirrors the rate cache to a broker. Topics are retained so a new
// subscriber sees the current rates immediately.
type Publisher interface {
	PublishRate(u events.RateUpdate) error
	PublishInvalidation(inv events.Invalidation) error
}
