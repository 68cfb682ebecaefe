package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRateFromDecimalTruncates(t *testing.T) {
	cases := []struct {
		in   string
		want Rate
	}{
		{"2.73", 273},
		{"16.5", 1650},
		{"24.8745", 2487},
		{"-10000.1", -1000010},
		{"-0.019", -1},
		{"0", 0},
	}
	for _, c := range cases {
		got := RateFromDecimal(decimal.RequireFromString(c.in))
		if got != c.want {
			t.Errorf("%s: expected %d got %d", c.in, c.want, got)
		}
	}
}

func TestRateString(t *testing.T) {
	if s := Rate(273).String(); s != "2.73" {
		t.Fatalf("expected 2.73 got %s", s)
	}
	if s := Rate(-5).String(); s != "-0.05" {
		t.Fatalf("expected -0.05 got %s", s)
	}
}

func TestSlotIndex(t *testing.T) {
	if k, ok := SlotIndex(0, 0); !ok || k != 0 {
		t.Fatalf("00:00 -> %d %v", k, ok)
	}
	if k, ok := SlotIndex(23, 30); !ok || k != 47 {
		t.Fatalf("23:30 -> %d %v", k, ok)
	}
	if _, ok := SlotIndex(10, 15); ok {
		t.Fatal("10:15 must not start a slot")
	}
	if k := SlotOf(time.Date(2024, 1, 1, 13, 45, 0, 0, time.UTC)); k != 27 {
		t.Fatalf("13:45 -> %d", k)
	}
}

func TestTimeOfUseTableSummary(t *testing.T) {
	var tbl TimeOfUseTable
	if s := tbl.Summary(); s.Slots != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
	tbl.Set(0, 1000)
	tbl.Set(1, -200)
	tbl.Set(47, 3500)
	tbl.Set(48, 9999)
	s := tbl.Summary()
	if s.Slots != 3 || s.Min != -200 || s.Max != 3500 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Mean < 14.33 || s.Mean > 14.34 {
		t.Fatalf("unexpected mean %v", s.Mean)
	}
}

func TestTimeOfUseTableSlot(t *testing.T) {
	var tbl TimeOfUseTable
	tbl.Set(4, 123)
	if e := tbl.Slot(4); e.Valid {
		t.Fatal("slot must not be valid before the table is")
	}
	tbl.Valid = true
	if e := tbl.Slot(4); !e.Valid || e.Rate != 123 {
		t.Fatalf("unexpected slot %+v", e)
	}
	if tbl.HourValid(2) {
		t.Fatal("hour 2 only has one slot")
	}
	tbl.Set(5, 1)
	if !tbl.HourValid(2) {
		t.Fatal("hour 2 should be complete")
	}
}

func TestCategories(t *testing.T) {
	if n := len(Categories(false, false)); n != 2 {
		t.Fatalf("expected 2 got %d", n)
	}
	if n := len(Categories(true, true)); n != 5 {
		t.Fatalf("expected 5 got %d", n)
	}
}

func TestParseNames(t *testing.T) {
	if f, err := ParseFuel("elec"); err != nil || f != FuelElectricity {
		t.Fatalf("elec: %v %v", f, err)
	}
	if _, err := ParseFuel("oil"); err == nil {
		t.Fatal("expected error for unknown fuel")
	}
	for _, tr := range []Tariff{TariffTracker, TariffFlexible, TariffAgile} {
		got, err := ParseTariff(tr.String())
		if err != nil || got != tr {
			t.Fatalf("%s: got %v %v", tr, got, err)
		}
	}
}
