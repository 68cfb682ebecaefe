// Package util provides helpers shared across integration tests.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker container
// for MQTT-based tests. It returns the broker URL and a cleanup function.
//
// TariffServer serves standard unit rate documents the way the supplier API
// does, so the full client stack can run against it.
//
// WaitForMetric polls a Prometheus metrics endpoint until the desired metric
// appears in the output.
package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

type result struct {
	ValueIncVAT   float64 `json:"value_inc_vat"`
	ValueExcVAT   float64 `json:"value_exc_vat"`
	ValidFrom     string  `json:"valid_from"`
	ValidTo       *string `json:"valid_to"`
	PaymentMethod *string `json:"payment_method"`
}

// TariffServer answers every feed with prices relative to the current time.
// Tracker feeds return yesterday's and today's day rate, agile feeds a full
// day of half-hour slots and flexible feeds a single open-ended rate.
type TariffServer struct {
	*httptest.Server
	// Gas and Electricity are the day rates served by tracker and flexible
	// feeds.
	Gas, Electricity float64
	requests         atomic.Int64
	failing          atomic.Bool
}

// NewTariffServer starts a server; close it with Close.
func NewTariffServer() *TariffServer {
	s := &TariffServer{Gas: 2.73, Electricity: 16.5}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetFailing makes every request answer 503.
func (s *TariffServer) SetFailing(v bool) { s.failing.Store(v) }

// Requests returns the number of requests served.
func (s *TariffServer) Requests() int64 { return s.requests.Load() }

func (s *TariffServer) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	now := time.Now().UTC()
	w.Header().Set("Date", now.Format(http.TimeFormat))
	if s.failing.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	value := s.Electricity
	if strings.Contains(r.URL.Path, "/gas-tariffs/") {
		value = s.Gas
	}
	var results []result
	switch {
	case strings.Contains(r.URL.Path, "AGILE"):
		day := now.Truncate(24 * time.Hour)
		for k := 0; k < 48; k++ {
			from := day.Add(time.Duration(k) * 30 * time.Minute)
			results = append(results, result{ValueIncVAT: float64(k), ValueExcVAT: float64(k), ValidFrom: from.Format(time.RFC3339)})
		}
	case strings.Contains(r.URL.Path, "VAR"):
		dd := "DIRECT_DEBIT"
		results = append(results, result{ValueIncVAT: value, ValueExcVAT: value, ValidFrom: now.Add(-30 * 24 * time.Hour).Format(time.RFC3339), PaymentMethod: &dd})
	default:
		for _, d := range []time.Duration{-time.Hour, time.Hour} {
			results = append(results, result{ValueIncVAT: value, ValueExcVAT: value, ValidFrom: now.Add(d).Format(time.RFC3339)})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"count": len(results), "next": nil, "results": results})
}

// WaitForMetric polls the given metrics URL until the provided substring is
// found in the output or the context is done.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if rerr != nil {
				return fmt.Errorf("read metrics body: %w", rerr)
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`
	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		cleanup()
		return "", nil, err
	}
	return broker, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
