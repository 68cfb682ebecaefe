// Package infra holds the adapters between the ticker core and the outside
// world: the tariff API client, GPIO hardware, MQTT, metrics exporters and
// process control. Adapters implement interfaces declared in core.
package infra
