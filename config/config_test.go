package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `api:
  api_key: "sk_live"
  ca_file: "/etc/ssl/octopus.pem"
tariffs:
  tracker:
    product: "SILVER-24-10-01"
    electricity: "E-1R-SILVER-24-10-01-A"
    gas: "G-1R-SILVER-24-10-01-A"
  agile:
    enabled: true
    product: "AGILE-24-10-01"
    electricity: "E-1R-AGILE-24-10-01-A"
  exclude_vat: true
display:
  period_us: 250
brightness:
  hysteresis: 50
hardware:
  driver: "sim"
  fixed_light: 1200
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  topic_prefix: "home/ticker"
metrics:
  sinks:
    - type: "nop"
logging:
  level: "debug"
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"api_key", cfg.API.APIKey, "sk_live"},
		{"ca_file", cfg.API.CAFile, "/etc/ssl/octopus.pem"},
		{"tracker.gas", cfg.Tariffs.Tracker.Gas, "G-1R-SILVER-24-10-01-A"},
		{"agile.enabled", cfg.Tariffs.Agile.Enabled, true},
		{"flexible.enabled", cfg.Tariffs.Flexible.Enabled, false},
		{"exclude_vat", cfg.Tariffs.ExcludeVAT, true},
		{"payment_method", cfg.Tariffs.PaymentMethod, "DIRECT_DEBIT"},
		{"period_us", cfg.Display.PeriodMicros, 250},
		{"levels", cfg.Display.Levels, 4},
		{"groups", len(cfg.Display.Groups), 4},
		{"hysteresis", cfg.Brightness.Hysteresis, 50},
		{"initial_level", *cfg.Brightness.InitialLevel, 3},
		{"watchdog.limit", cfg.Watchdog.Limit, 900},
		{"restart", cfg.Restart, "exec"},
		{"driver", cfg.Hardware.Driver, "sim"},
		{"fixed_light", cfg.Hardware.FixedLight, 1200},
		{"mode button", cfg.Hardware.Buttons["mode"], "GPIO0"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "home/ticker"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"log level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TICKER_API__API_KEY", "sk_env")
	t.Setenv("TICKER_WATCHDOG__LIMIT", "60")
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, "sk_env", cfg.API.APIKey)
	assert.Equal(t, 60, cfg.Watchdog.Limit)
}

func TestLoadJSON(t *testing.T) {
	data := `{"tariffs":{"tracker":{"product":"P","electricity":"E","gas":"G"}},"hardware":{"driver":"sim"}}`
	cfg, err := Load(writeConfig(t, "config.json", data))
	require.NoError(t, err)
	assert.Equal(t, "P", cfg.Tariffs.Tracker.Product)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := `tariffs:
  agile:
    enabled: true
logging:
  level: "loud"
restart: "reboot"
`
	_, err = Load(writeConfig(t, "bad.yaml", bad))
	require.Error(t, err)
	assert.ErrorContains(t, err, "tariffs:")
	assert.ErrorContains(t, err, "logging:")
	assert.ErrorContains(t, err, "restart:")
}

func TestLoadBrightnessLevels(t *testing.T) {
	base := `tariffs:
  tracker:
    product: "P"
    electricity: "E"
    gas: "G"
hardware:
  driver: "sim"
`
	cfg, err := Load(writeConfig(t, "zero.yaml", base+"brightness:\n  initial_level: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Brightness.InitialLevel)
	assert.Equal(t, 0, *cfg.Brightness.InitialLevel)

	_, err = Load(writeConfig(t, "mismatch.yaml", base+"brightness:\n  levels: 8\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "differ from display levels")
}
