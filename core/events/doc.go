// Package events defines the events published on the rate event bus.
//
// Available event types:
//   - RateUpdate: a category was parsed from a fresh document
//   - Invalidation: cached categories were cleared by the refresh policy
package events
