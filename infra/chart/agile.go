// Package chart renders the cached agile table as a standalone HTML page.
package chart

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/tariffticker/core/model"
)

// SlotLabel returns the start time of slot k as HH:MM.
func SlotLabel(k int) string {
	m := 0
	if k%2 == 1 {
		m = 30
	}
	return fmt.Sprintf("%02d:%02d", k/2, m)
}

// AgileChartHTML draws the day's half-hourly rates. Missing slots are left
// as gaps. Reference lines mark the tracker rate when it is valid.
func AgileChartHTML(title string, t model.TimeOfUseTable, tracker model.RateEntry) (string, error) {
	if !t.Valid {
		return "", fmt.Errorf("agile table not obtained")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Slot"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Rate (p/kWh)"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	xAxis := make([]string, model.SlotsPerDay)
	yAxis := make([]opts.LineData, model.SlotsPerDay)
	for k := 0; k < model.SlotsPerDay; k++ {
		xAxis[k] = SlotLabel(k)
		e := t.Slot(k)
		if e.Valid {
			yAxis[k] = opts.LineData{Value: e.Rate.Float64()}
		} else {
			yAxis[k] = opts.LineData{Value: "-"}
		}
	}
	line.SetXAxis(xAxis).AddSeries("Agile", yAxis)

	if tracker.Valid {
		flat := make([]opts.LineData, model.SlotsPerDay)
		for k := range flat {
			flat[k] = opts.LineData{Value: tracker.Rate.Float64()}
		}
		line.AddSeries("Tracker", flat)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.String(), nil
}
