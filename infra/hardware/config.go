package hardware

import (
	"fmt"

	"github.com/kilianp07/tariffticker/core/brightness"
	"github.com/kilianp07/tariffticker/core/display"
)

const (
	DriverGPIO = "gpio"
	DriverSim  = "sim"
)

// Config selects the board and names its lines.
type Config struct {
	Driver string    `json:"driver"`
	Pins   PinConfig `json:"pins"`
	// Buttons maps the button names used by display groups to GPIO lines.
	Buttons map[string]string `json:"buttons"`
	// LightSensor is the sysfs file holding the raw ADC value. Empty uses
	// FixedLight.
	LightSensor string `json:"light_sensor"`
	FixedLight  int    `json:"fixed_light"`
}

// SetDefaults applies the reference board wiring.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverGPIO
	}
	def := DefaultPins()
	if c.Pins.Data == "" {
		c.Pins.Data = def.Data
	}
	if c.Pins.Clock == "" {
		c.Pins.Clock = def.Clock
	}
	if c.Pins.Latch == "" {
		c.Pins.Latch = def.Latch
	}
	if c.Pins.OutputEnable == "" {
		c.Pins.OutputEnable = def.OutputEnable
	}
	for bank := range c.Pins.Segments {
		for i := range c.Pins.Segments[bank] {
			if c.Pins.Segments[bank][i] == "" {
				c.Pins.Segments[bank][i] = def.Segments[bank][i]
			}
		}
	}
	if c.Buttons == nil {
		c.Buttons = map[string]string{"mode": "GPIO0"}
	}
}

// Validate checks the driver name.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverGPIO, DriverSim:
		return nil
	default:
		return fmt.Errorf("unknown hardware driver %q", c.Driver)
	}
}

// Board is the set of devices the ticker runs on.
type Board struct {
	Bus     display.Bus
	Buttons map[string]display.Button
	Sensor  brightness.Sensor
	// Sim is set when the simulator driver is in use.
	Sim *SimBus
}

// Open resolves the devices named by cfg.
func Open(cfg Config) (*Board, error) {
	b := &Board{Buttons: make(map[string]display.Button, len(cfg.Buttons))}
	switch cfg.Driver {
	case DriverSim:
		b.Sim = NewSimBus()
		b.Bus = b.Sim
		for name := range cfg.Buttons {
			b.Buttons[name] = &SimButton{}
		}
	case DriverGPIO:
		bus, err := OpenGPIOBus(cfg.Pins)
		if err != nil {
			return nil, fmt.Errorf("open display: %w", err)
		}
		b.Bus = bus
		for name, line := range cfg.Buttons {
			btn, err := OpenGPIOButton(line)
			if err != nil {
				return nil, fmt.Errorf("open button %s: %w", name, err)
			}
			b.Buttons[name] = btn
		}
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Driver)
	}
	if cfg.LightSensor != "" {
		b.Sensor = IIOSensor{Path: cfg.LightSensor}
	} else {
		b.Sensor = FixedSensor(cfg.FixedLight)
	}
	return b, nil
}
