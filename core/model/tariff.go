package model

import "fmt"

// Tariff identifies a pricing scheme offered by the supplier.
type Tariff int

const (
	TariffTracker Tariff = iota
	TariffFlexible
	TariffAgile
)

// String returns a human-readable representation of the tariff.
func (t Tariff) String() string {
	switch t {
	case TariffTracker:
		return "tracker"
	case TariffFlexible:
		return "flexible"
	case TariffAgile:
		return "agile"
	default:
		return "unknown"
	}
}

// Fuel is the metered energy carrier.
type Fuel int

const (
	FuelGas Fuel = iota
	FuelElectricity
)

// Fuels lists every fuel in index order.
var Fuels = [...]Fuel{FuelGas, FuelElectricity}

func (f Fuel) String() string {
	switch f {
	case FuelGas:
		return "gas"
	case FuelElectricity:
		return "electricity"
	default:
		return "unknown"
	}
}

// Category names one cell of the rate cache.
type Category struct {
	Tariff Tariff
	Fuel   Fuel
}

func (c Category) String() string { return c.Tariff.String() + "/" + c.Fuel.String() }

// Categories returns the cache cells that exist for the enabled tariffs. The
// tracker tariff is always present; agile is electricity only.
func Categories(flexible, agile bool) []Category {
	cats := []Category{
		{TariffTracker, FuelGas},
		{TariffTracker, FuelElectricity},
	}
	if flexible {
		cats = append(cats, Category{TariffFlexible, FuelGas}, Category{TariffFlexible, FuelElectricity})
	}
	if agile {
		cats = append(cats, Category{TariffAgile, FuelElectricity})
	}
	return cats
}

// ParseTariff maps a configuration name to a Tariff.
func ParseTariff(s string) (Tariff, error) {
	switch s {
	case "tracker":
		return TariffTracker, nil
	case "flexible":
		return TariffFlexible, nil
	case "agile":
		return TariffAgile, nil
	}
	return 0, fmt.Errorf("unknown tariff %q", s)
}

// ParseFuel maps a configuration name to a Fuel. "elec" is accepted as a
// short form.
func ParseFuel(s string) (Fuel, error) {
	switch s {
	case "gas":
		return FuelGas, nil
	case "electricity", "elec":
		return FuelElectricity, nil
	}
	return 0, fmt.Errorf("unknown fuel %q", s)
}
