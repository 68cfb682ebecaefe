package hardware

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// IIOSensor reads a raw ADC value exposed by the Linux industrial I/O
// subsystem, for example /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOSensor struct {
	Path string
}

// ReadRaw returns the current reading.
func (s IIOSensor) ReadRaw() (int, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, fmt.Errorf("read light sensor: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse light sensor %s: %w", s.Path, err)
	}
	return v, nil
}

// FixedSensor always returns the same reading.
type FixedSensor int

func (s FixedSensor) ReadRaw() (int, error) { return int(s), nil }

// SimSensor is a settable sensor used by the simulator and tests.
type SimSensor struct{ v atomic.Int64 }

// Set changes the next reading.
func (s *SimSensor) Set(raw int) { s.v.Store(int64(raw)) }

func (s *SimSensor) ReadRaw() (int, error) { return int(s.v.Load()), nil }
