package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/tariffticker/core/metrics"
	"github.com/kilianp07/tariffticker/infra/logger"
)

// InfluxSink writes rate and device events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	device   string
	log      logger.Logger
}

// InfluxConfig locates the bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Device tags every point so several tickers can share a bucket.
	Device string `json:"device"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		device:   cfg.Device,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) point(measurement string) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.device != "" {
		p = p.AddTag("device", s.device)
	}
	return p
}

func (s *InfluxSink) emit(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRate writes the parsed rate of a category. Agile updates also carry
// the day's summary.
func (s *InfluxSink) RecordRate(ev coremetrics.RateEvent) error {
	p := s.point("rate_update").
		AddTag("tariff", ev.Category.Tariff.String()).
		AddTag("fuel", ev.Category.Fuel.String()).
		AddTag("cycle_id", ev.CycleID).
		AddField("valid", ev.Entry.Valid)
	if ev.Entry.Valid {
		p = p.AddField("rate_pence", round3(ev.Entry.Rate.Float64()))
	}
	if ev.Tomorrow.Valid {
		p = p.AddField("tomorrow_pence", round3(ev.Tomorrow.Rate.Float64()))
	}
	if ev.Summary != nil {
		p = p.AddField("min_pence", round3(ev.Summary.Min.Float64())).
			AddField("max_pence", round3(ev.Summary.Max.Float64())).
			AddField("mean_pence", round3(ev.Summary.Mean)).
			AddField("slots", ev.Summary.Slots)
	}
	return s.emit(p.SetTime(ev.Time))
}

// RecordFetch writes one completed fetch.
func (s *InfluxSink) RecordFetch(ev coremetrics.FetchEvent) error {
	p := s.point("fetch").
		AddTag("tariff", ev.Category.Tariff.String()).
		AddTag("fuel", ev.Category.Fuel.String()).
		AddTag("status", strconv.Itoa(ev.Status)).
		AddField("attempts", ev.Attempts).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000))
	if ev.Err != "" {
		p = p.AddField("error", ev.Err)
	}
	return s.emit(p.SetTime(ev.Time))
}

// RecordInvalidation writes the reason and the number of cleared categories.
func (s *InfluxSink) RecordInvalidation(ev coremetrics.InvalidationEvent) error {
	p := s.point("invalidation").
		AddTag("reason", ev.Reason).
		AddField("categories", len(ev.Categories)).
		SetTime(ev.Time)
	return s.emit(p)
}

func (s *InfluxSink) RecordBrightness(ev coremetrics.BrightnessEvent) error {
	p := s.point("brightness").
		AddField("level", ev.Level).
		AddField("average", ev.Average).
		SetTime(ev.Time)
	return s.emit(p)
}

// RecordWatchdog writes only non-zero counters so a healthy device stays
// quiet.
func (s *InfluxSink) RecordWatchdog(ev coremetrics.WatchdogEvent) error {
	if ev.Counter == 0 && !ev.Fired {
		return nil
	}
	p := s.point("watchdog").
		AddField("counter", ev.Counter).
		AddField("limit", ev.Limit).
		AddField("fired", ev.Fired).
		SetTime(ev.Time)
	return s.emit(p)
}

func (s *InfluxSink) RecordDisplay(ev coremetrics.DisplayEvent) error {
	p := s.point("display").
		AddField("ticks", int64(ev.Ticks)).
		AddField("frames", int64(ev.Frames)).
		AddField("faults", int64(ev.Faults)).
		SetTime(ev.Time)
	return s.emit(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
