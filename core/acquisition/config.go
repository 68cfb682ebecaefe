package acquisition

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/tariffticker/core/model"
)

// DefaultBaseURL is the public tariff API root.
const DefaultBaseURL = "https://api.octopus.energy/v1"

// TariffConfig names the product and per-fuel tariff codes of one tariff.
type TariffConfig struct {
	Enabled     bool   `json:"enabled"`
	Product     string `json:"product"`
	Electricity string `json:"electricity"`
	Gas         string `json:"gas"`
}

// Config defines which tariffs are fetched and how.
type Config struct {
	BaseURL string `json:"base_url"`
	// Tracker is always fetched; its Enabled flag is ignored.
	Tracker  TariffConfig `json:"tracker"`
	Flexible TariffConfig `json:"flexible"`
	// Agile only has an electricity tariff.
	Agile TariffConfig `json:"agile"`
	// PaymentMethod selects the flexible rate. Empty accepts any method.
	PaymentMethod string `json:"payment_method"`
	// ExcludeVAT reads value_exc_vat instead of value_inc_vat.
	ExcludeVAT            bool `json:"exclude_vat"`
	PollIntervalSeconds   int  `json:"poll_interval_seconds"`
	RetryIntervalMS       int  `json:"retry_interval_ms"`
	MaxAttempts           int  `json:"max_attempts"`
	RequestTimeoutSeconds int  `json:"request_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PaymentMethod == "" {
		c.PaymentMethod = "DIRECT_DEBIT"
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 10
	}
	if c.RetryIntervalMS <= 0 {
		c.RetryIntervalMS = 1000
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 30
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Tracker.Product == "" || c.Tracker.Electricity == "" || c.Tracker.Gas == "" {
		return fmt.Errorf("tracker requires product, electricity and gas codes")
	}
	if c.Flexible.Enabled && (c.Flexible.Product == "" || c.Flexible.Electricity == "" || c.Flexible.Gas == "") {
		return fmt.Errorf("flexible requires product, electricity and gas codes")
	}
	if c.Agile.Enabled && (c.Agile.Product == "" || c.Agile.Electricity == "") {
		return fmt.Errorf("agile requires product and electricity code")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative")
	}
	return nil
}

// Retry returns the retry policy described by the configuration.
func (c Config) Retry() RetryPolicy {
	return RetryPolicy{
		Interval:    time.Duration(c.RetryIntervalMS) * time.Millisecond,
		MaxAttempts: c.MaxAttempts,
	}
}

// Categories returns the enabled cache cells.
func (c Config) Categories() []model.Category {
	return model.Categories(c.Flexible.Enabled, c.Agile.Enabled)
}

// Endpoint is one rate feed.
type Endpoint struct {
	Category model.Category
	URL      string
}

// BuildURL returns the standard unit rate feed of a tariff code.
func BuildURL(base, product, code string, fuel model.Fuel) string {
	kind := "electricity"
	if fuel == model.FuelGas {
		kind = "gas"
	}
	return fmt.Sprintf("%s/products/%s/%s-tariffs/%s/standard-unit-rates/",
		strings.TrimRight(base, "/"), product, kind, code)
}

// Endpoints lists the feeds of every enabled category, in fetch order.
func (c Config) Endpoints() []Endpoint {
	var eps []Endpoint
	for _, cat := range c.Categories() {
		var tc TariffConfig
		switch cat.Tariff {
		case model.TariffTracker:
			tc = c.Tracker
		case model.TariffFlexible:
			tc = c.Flexible
		case model.TariffAgile:
			tc = c.Agile
		}
		code := tc.Electricity
		if cat.Fuel == model.FuelGas {
			code = tc.Gas
		}
		eps = append(eps, Endpoint{Category: cat, URL: BuildURL(c.BaseURL, tc.Product, code, cat.Fuel)})
	}
	return eps
}
