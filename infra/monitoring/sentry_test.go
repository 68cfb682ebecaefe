package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/tariffticker/config"
	coremon "github.com/kilianp07/tariffticker/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestNewSentryMonitorInvalidDSN(t *testing.T) {
	if _, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"}); err == nil {
		t.Fatal("expected dsn error")
	}
}

func TestSentryMonitorCapture(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "https://public@127.0.0.1:1/1", DeviceName: "ticker-1"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	m.CaptureException(errors.New("liveness"), map[string]string{"component": "watchdog"})
	m.CaptureException(nil, nil)
	m.Flush(10 * time.Millisecond)
}
