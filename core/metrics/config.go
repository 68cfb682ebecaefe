package metrics

import "github.com/kilianp07/tariffticker/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr exposes /metrics on this address when set.
	PrometheusAddr string `json:"prometheus_addr"`
	// StatsIntervalSeconds is how often renderer counters are sampled.
	StatsIntervalSeconds int `json:"stats_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.StatsIntervalSeconds <= 0 {
		c.StatsIntervalSeconds = 15
	}
}
