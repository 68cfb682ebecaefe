package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/tariffticker/core/model"
	"github.com/kilianp07/tariffticker/infra/chart"
)

var chartOut string

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Fetch today's agile rates and write them as an HTML chart",
	RunE:  runChart,
}

func init() {
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "agile.html", "output file")
	rootCmd.AddCommand(chartCmd)
}

func runChart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Tariffs.Agile.Enabled {
		return fmt.Errorf("agile tariff is not enabled")
	}
	store, clk, err := oneShot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	title := "Agile " + clk.Now().UTC().Format("2006-01-02")
	html, err := chart.AgileChartHTML(title, *store.Agile(), store.TrackerToday(model.FuelElectricity))
	if err != nil {
		return err
	}
	if err := os.WriteFile(chartOut, []byte(html), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", chartOut)
	return nil
}
