package metrics

// Package metrics defines the sinks that observe the ticker. A MetricsSink
// records parsed rates; sinks may also implement the optional recorder
// interfaces for fetches, invalidations, brightness, the watchdog and the
// renderer. Sinks like PromSink and InfluxSink live in infra/metrics and are
// combined with NewMultiSink. The factory helpers return a MultiSink
// automatically when multiple sinks are configured.
