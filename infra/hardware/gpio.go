// Package hardware connects the display, mode buttons and light sensor to
// real GPIO lines or to an in-memory simulator.
package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/kilianp07/tariffticker/core/display"
)

// SegmentLines names the a..g and decimal point lines of one bank.
type SegmentLines [8]string

// PinConfig names the GPIO lines of the display.
type PinConfig struct {
	// Anode shift register: serial data, shift clock, storage latch and
	// output enable (active low).
	Data         string                      `json:"data"`
	Clock        string                      `json:"clock"`
	Latch        string                      `json:"latch"`
	OutputEnable string                      `json:"output_enable"`
	Segments     [display.Banks]SegmentLines `json:"segments"`
}

// DefaultPins is the wiring of the reference board.
func DefaultPins() PinConfig {
	return PinConfig{
		Data:         "GPIO11",
		Clock:        "GPIO12",
		Latch:        "GPIO10",
		OutputEnable: "GPIO9",
		Segments: [display.Banks]SegmentLines{
			{"GPIO4", "GPIO5", "GPIO6", "GPIO7", "GPIO17", "GPIO18", "GPIO8", "GPIO13"},
			{"GPIO14", "GPIO21", "GPIO47", "GPIO48", "GPIO35", "GPIO36", "GPIO37", "GPIO38"},
		},
	}
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	return p, nil
}

// GPIOBus drives common anode digits through a 16 bit anode shift register
// and active low segment lines.
type GPIOBus struct {
	Data, Clock, Latch, OutputEnable gpio.PinIO
	Segments                         [display.Banks][8]gpio.PinIO
}

// OpenGPIOBus initialises the host drivers and resolves every line of cfg.
func OpenGPIOBus(cfg PinConfig) (*GPIOBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	b := &GPIOBus{}
	var err error
	for _, l := range []struct {
		dst  *gpio.PinIO
		name string
	}{
		{&b.Data, cfg.Data},
		{&b.Clock, cfg.Clock},
		{&b.Latch, cfg.Latch},
		{&b.OutputEnable, cfg.OutputEnable},
	} {
		if *l.dst, err = pin(l.name); err != nil {
			return nil, err
		}
	}
	for bank := range cfg.Segments {
		for i, name := range cfg.Segments[bank] {
			if b.Segments[bank][i], err = pin(name); err != nil {
				return nil, err
			}
		}
	}
	return b, b.Blank()
}

// Blank disables the anodes and releases every segment line.
func (b *GPIOBus) Blank() error {
	if err := b.OutputEnable.Out(gpio.High); err != nil {
		return err
	}
	for bank := range b.Segments {
		for _, p := range b.Segments[bank] {
			if err := p.Out(gpio.High); err != nil {
				return err
			}
		}
	}
	return nil
}

// Select shifts a single low bit into the anode register for pos, latches it
// and enables the outputs.
func (b *GPIOBus) Select(pos int) error {
	if pos < 0 || pos >= display.Positions {
		return fmt.Errorf("position %d out of range", pos)
	}
	for i := 0; i < display.Positions; i++ {
		if err := b.Data.Out(gpio.Level(display.Positions-1-pos != i)); err != nil {
			return err
		}
		if err := b.Clock.Out(gpio.High); err != nil {
			return err
		}
		if err := b.Clock.Out(gpio.Low); err != nil {
			return err
		}
	}
	if err := b.Latch.Out(gpio.High); err != nil {
		return err
	}
	if err := b.Latch.Out(gpio.Low); err != nil {
		return err
	}
	return b.OutputEnable.Out(gpio.Low)
}

// Drive pulls the lit segment lines low.
func (b *GPIOBus) Drive(patterns [display.Banks]byte) error {
	for bank, p := range patterns {
		for i, line := range b.Segments[bank] {
			if err := line.Out(gpio.Level(p&(1<<uint(i)) == 0)); err != nil {
				return err
			}
		}
	}
	return nil
}

// GPIOButton is a push button to ground with the internal pull-up enabled.
type GPIOButton struct {
	Pin gpio.PinIO
}

// OpenGPIOButton configures the named line as a pulled-up input.
func OpenGPIOButton(name string) (*GPIOButton, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	p, err := pin(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s: %w", name, err)
	}
	return &GPIOButton{Pin: p}, nil
}

// Held reports whether the button pulls the line low.
func (b *GPIOButton) Held() bool { return b.Pin.Read() == gpio.Low }
