package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/tariffticker/core/acquisition"
	"github.com/kilianp07/tariffticker/core/brightness"
	"github.com/kilianp07/tariffticker/core/display"
	"github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/core/watchdog"
	"github.com/kilianp07/tariffticker/infra/hardware"
	"github.com/kilianp07/tariffticker/infra/mqtt"
	"github.com/kilianp07/tariffticker/infra/octopus"
)

// EnvPrefix marks environment overrides. TICKER_API__API_KEY sets api.api_key.
const EnvPrefix = "TICKER_"

type Config struct {
	API        octopus.Config     `json:"api"`
	Tariffs    acquisition.Config `json:"tariffs"`
	Display    display.Config     `json:"display"`
	Brightness brightness.Config  `json:"brightness"`
	Watchdog   watchdog.Config    `json:"watchdog"`
	// Restart is how the watchdog restarts the process: "exec" or "exit".
	Restart  string          `json:"restart"`
	Hardware hardware.Config `json:"hardware"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Metrics  metrics.Config  `json:"metrics"`
	Logging  LoggingConfig   `json:"logging"`
	Sentry   SentryConfig    `json:"sentry"`
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.API.SetDefaults()
	c.Tariffs.SetDefaults()
	c.Display.SetDefaults()
	c.Brightness.SetDefaults()
	c.Watchdog.SetDefaults()
	if c.Restart == "" {
		c.Restart = "exec"
	}
	c.Hardware.SetDefaults()
	c.MQTT.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("tariffs", c.Tariffs.Validate())
	add("display", c.Display.Validate())
	add("brightness", c.Brightness.Validate())
	add("hardware", c.Hardware.Validate())
	add("mqtt", c.MQTT.Validate())
	add("logging", c.Logging.Validate())
	if c.Brightness.Levels != c.Display.Levels {
		add("brightness", fmt.Errorf("levels %d differ from display levels %d", c.Brightness.Levels, c.Display.Levels))
	}
	if c.Restart != "exec" && c.Restart != "exit" {
		add("restart", fmt.Errorf("unknown mode %q", c.Restart))
	}
	return errors.Join(errs...)
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
