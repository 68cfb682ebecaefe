package test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/tariffticker/app"
	"github.com/kilianp07/tariffticker/config"
	"github.com/kilianp07/tariffticker/core/acquisition"
	"github.com/kilianp07/tariffticker/core/factory"
	"github.com/kilianp07/tariffticker/core/model"
	_ "github.com/kilianp07/tariffticker/infra/metrics"
	"github.com/kilianp07/tariffticker/test/util"
)

type nopRestarter struct{}

func (nopRestarter) Restart(error) error { return nil }

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func tickerConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Tariffs.BaseURL = baseURL
	cfg.Tariffs.Tracker = acquisition.TariffConfig{Product: "SILVER-FLEX", Electricity: "E-1R-SILVER-FLEX-A", Gas: "G-1R-SILVER-FLEX-A"}
	cfg.Tariffs.Flexible = acquisition.TariffConfig{Enabled: true, Product: "VAR-22", Electricity: "E-1R-VAR-22-A", Gas: "G-1R-VAR-22-A"}
	cfg.Tariffs.Agile = acquisition.TariffConfig{Enabled: true, Product: "AGILE-24", Electricity: "E-1R-AGILE-24-A"}
	cfg.Tariffs.RetryIntervalMS = 10
	cfg.Hardware.Driver = "sim"
	cfg.Hardware.FixedLight = 2000
	cfg.Watchdog.IntervalMS = 50
	cfg.Metrics.StatsIntervalSeconds = 1
	cfg.SetDefaults()
	return cfg
}

func TestTickerFetchesEveryTariff(t *testing.T) {
	srv := util.NewTariffServer()
	defer srv.Close()

	cfg := tickerConfig(srv.URL)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.Metrics.PrometheusAddr = freeAddr(t)
	require.NoError(t, cfg.Validate())

	svc, err := app.New(cfg, app.WithRestarter(nopRestarter{}))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, c := range svc.Engine.Categories() {
			if !svc.Store.Valid(c) {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, svc.Clock.Synchronized(), "clock set from the Date header")
	assert.True(t, svc.Store.Connected())
	assert.Equal(t, model.Rate(273), svc.Store.TrackerToday(model.FuelGas).Rate)
	assert.Equal(t, model.Rate(1650), svc.Store.Flexible(model.FuelElectricity).Rate)
	agile := svc.Store.Agile()
	assert.True(t, agile.Valid)
	assert.Equal(t, model.Rate(4700), agile.Slot(47).Rate)

	mctx, mcancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer mcancel()
	url := "http://" + cfg.Metrics.PrometheusAddr + "/metrics"
	require.NoError(t, util.WaitForMetric(mctx, url, "ticker_rate_pence"))
	require.NoError(t, util.WaitForMetric(mctx, url, "ticker_fetch_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}
}

func TestTickerShowsStatusWhileServerFails(t *testing.T) {
	srv := util.NewTariffServer()
	defer srv.Close()
	srv.SetFailing(true)

	cfg := tickerConfig(srv.URL)
	cfg.Tariffs.Flexible.Enabled = false
	cfg.Tariffs.Agile.Enabled = false
	svc, err := app.New(cfg, app.WithRestarter(nopRestarter{}))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Requests() >= 2 }, 5*time.Second, 10*time.Millisecond)
	// Connected and synchronised, but no rate yet.
	assert.Eventually(t, func() bool {
		f := svc.Renderer.Shown()
		return strings.Contains(f.String(svc.Renderer.Mask()), "-- ")
	}, time.Second, 5*time.Millisecond)
	assert.False(t, svc.Store.Valid(model.Category{Tariff: model.TariffTracker, Fuel: model.FuelGas}))

	srv.SetFailing(false)
	require.Eventually(t, func() bool {
		return svc.Store.Valid(model.Category{Tariff: model.TariffTracker, Fuel: model.FuelGas})
	}, 5*time.Second, 10*time.Millisecond)
}
