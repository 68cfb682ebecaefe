package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/tariffticker/core/clock"
	"github.com/kilianp07/tariffticker/core/display"
	"github.com/kilianp07/tariffticker/core/rates"
	"github.com/kilianp07/tariffticker/infra/hardware"
	"github.com/kilianp07/tariffticker/infra/logger"
)

var (
	demoInterval time.Duration
	demoSim      bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Step the display through status patterns and boundary prices",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().DurationVar(&demoInterval, "interval", time.Second, "time each step is shown")
	demoCmd.Flags().BoolVar(&demoSim, "sim", false, "use the simulated board instead of the configured one")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hw := cfg.Hardware
	if demoSim {
		hw.Driver = hardware.DriverSim
	}
	board, err := hardware.Open(hw)
	if err != nil {
		return fmt.Errorf("hardware: %w", err)
	}

	store, clk := rates.New(), clock.New()
	r, err := display.NewRenderer(cfg.Display, board.Bus, store, clk,
		display.WithTariffs(true, true),
		display.WithLogger(logger.New("demo")))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	out := cmd.OutOrStdout()
	err = display.RunDemo(ctx, store, clk, demoInterval, func(step display.DemoStep) {
		awaitFrame(ctx, r)
		f := r.Shown()
		fmt.Fprintf(out, "== %s\n%s\n", step.Name, f.String(r.Mask()))
	})
	cancel()
	<-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// awaitFrame waits until the renderer has rebuilt its frame at least once
// since the call, so the printed frame includes the step just applied.
func awaitFrame(ctx context.Context, r *display.Renderer) {
	target := r.Stats().Frames + 2
	deadline := time.After(250 * time.Millisecond)
	for r.Stats().Frames < target {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-time.After(time.Millisecond):
		}
	}
}
