// Package export writes run summaries for offline analysis: JSON snapshots,
// per-taxi ledger CSV and an HTML pricing chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/robotaxi/core/report"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes one ledger summary line per taxi.
func WriteCSV(w io.Writer, taxis []report.TaxiStatus) error {
	cw := csv.NewWriter(w)
	header := []string{"taxi_id", "state", "battery_pct", "distance_km", "energy_kwh", "earnings", "cost", "profit"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range taxis {
		rec := []string{
			t.ID,
			t.State,
			formatFloat(t.BatteryPct),
			formatFloat(t.DistanceKm),
			formatFloat(t.EnergyKWh),
			formatFloat(t.Earnings),
			formatFloat(t.Cost),
			formatFloat(t.Profit),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PricingChart renders the energy price, demand multiplier and time of day
// rate over simulated time as a standalone HTML page.
func PricingChart(w io.Writer, title string, points []report.PricePoint) error {
	if len(points) == 0 {
		return fmt.Errorf("no pricing samples")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "energy price and demand over simulated time"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sim time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "price / multiplier"}),
	)

	xAxis := make([]string, 0, len(points))
	var price, demand, tod []opts.LineData
	for _, p := range points {
		xAxis = append(xAxis, strconv.FormatFloat(p.SimTime, 'f', 0, 64))
		price = append(price, opts.LineData{Value: p.Price, Name: p.Interval})
		demand = append(demand, opts.LineData{Value: p.Demand})
		tod = append(tod, opts.LineData{Value: p.TODRate})
	}
	line.SetXAxis(xAxis).
		AddSeries("price", price).
		AddSeries("demand", demand).
		AddSeries("tod_rate", tod)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
