package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/tariffticker/config"
	"github.com/kilianp07/tariffticker/core/acquisition"
	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/format"
	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/core/rates"
	"github.com/kilianp07/tariffticker/infra/logger"
	"github.com/kilianp07/tariffticker/infra/octopus"
)

var fetchOutput string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every enabled tariff once and print the rates",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(fetchCmd)
}

// RateRow is one category of the fetch report.
type RateRow struct {
	Tariff   string `json:"tariff" yaml:"tariff"`
	Fuel     string `json:"fuel" yaml:"fuel"`
	Valid    bool   `json:"valid" yaml:"valid"`
	Rate     string `json:"rate,omitempty" yaml:"rate,omitempty"`
	Tomorrow string `json:"tomorrow,omitempty" yaml:"tomorrow,omitempty"`
	// Display is the three digit rendering, decimal point included.
	Display string `json:"display" yaml:"display"`
}

// AgileReport summarises the half-hourly table.
type AgileReport struct {
	Slots int      `json:"slots" yaml:"slots"`
	Min   string   `json:"min" yaml:"min"`
	Max   string   `json:"max" yaml:"max"`
	Mean  float64  `json:"mean" yaml:"mean"`
	Rates []string `json:"rates" yaml:"rates"`
}

// FetchReport is what the fetch command prints.
type FetchReport struct {
	Rates []RateRow     `json:"rates" yaml:"rates"`
	Agile *AgileReport `json:"agile,omitempty" yaml:"agile,omitempty"`
}

func rateString(e model.RateEntry) string {
	if !e.Valid {
		return ""
	}
	return e.Rate.String()
}

// oneShot fetches every category of cfg once into a fresh store.
func oneShot(ctx context.Context, cfg *config.Config) (*rates.Store, *clock.Clock, error) {
	client, err := octopus.NewClient(cfg.API)
	if err != nil {
		return nil, nil, err
	}
	tariffs := cfg.Tariffs
	if tariffs.MaxAttempts <= 0 {
		tariffs.MaxAttempts = 3
	}
	store, clk := rates.New(), clock.New()
	if cfg.API.TrustSystemClock {
		clk.MarkSynchronized()
	}
	engine, err := acquisition.NewEngine(tariffs, store, clk, client,
		acquisition.WithLogger(logger.New("fetch")))
	if err != nil {
		return nil, nil, err
	}
	return store, clk, engine.FetchOnce(ctx)
}

// BuildReport reads the categories back from the store.
func BuildReport(store *rates.Store, clk *clock.Clock, cats []model.Category) FetchReport {
	var rep FetchReport
	pre := format.Preconditions{Connected: store.Connected(), Synchronized: clk.Synchronized()}
	for _, c := range cats {
		var e, tomorrow model.RateEntry
		var digits format.Digits
		switch c.Tariff {
		case model.TariffTracker:
			e, tomorrow = store.TrackerToday(c.Fuel), store.TrackerTomorrow(c.Fuel)
			digits = format.Entry(e, pre)
		case model.TariffFlexible:
			e = store.Flexible(c.Fuel)
			digits = format.Entry(e, pre)
		case model.TariffAgile:
			tbl := store.Agile()
			k := model.SlotOf(clk.Now())
			e = tbl.Slot(k)
			digits = format.Slot(tbl, k, pre)
			if tbl.Valid {
				s := tbl.Summary()
				ar := &AgileReport{Slots: s.Slots, Min: s.Min.String(), Max: s.Max.String(), Mean: s.Mean}
				for k := 0; k < model.SlotsPerDay; k++ {
					ar.Rates = append(ar.Rates, rateString(tbl.Slot(k)))
				}
				rep.Agile = ar
			}
		}
		rep.Rates = append(rep.Rates, RateRow{
			Tariff:   c.Tariff.String(),
			Fuel:     c.Fuel.String(),
			Valid:    e.Valid,
			Rate:     rateString(e),
			Tomorrow: rateString(tomorrow),
			Display:  digits.String(),
		})
	}
	return rep
}

// WriteReport prints rep in the named format.
func WriteReport(w io.Writer, rep FetchReport, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TARIFF\tFUEL\tRATE\tTOMORROW\tDISPLAY")
		for _, r := range rep.Rates {
			rate := r.Rate
			if !r.Valid {
				rate = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t[%s]\n", r.Tariff, r.Fuel, rate, r.Tomorrow, r.Display)
		}
		if rep.Agile != nil {
			fmt.Fprintf(tw, "agile\tsummary\tmin %s\tmax %s\tmean %.2f\n", rep.Agile.Min, rep.Agile.Max, rep.Agile.Mean)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, clk, err := oneShot(ctx, cfg)
	if store == nil {
		return err
	}
	if err != nil {
		logger.New("fetch").Warnf("fetch incomplete: %v", err)
	}
	return WriteReport(cmd.OutOrStdout(), BuildReport(store, clk, cfg.Tariffs.Categories()), fetchOutput)
}
