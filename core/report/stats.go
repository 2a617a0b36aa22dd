package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultBuckets are the upper bounds, in seconds, of the wait histogram.
var DefaultBuckets = []float64{60, 120, 300, 600, 900, 1800}

// Bucket is one wait histogram bin.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WaitStats summarizes pickup wait times.
type WaitStats struct {
	Count     int      `json:"count"`
	Mean      float64  `json:"mean"`
	P50       float64  `json:"p50"`
	P90       float64  `json:"p90"`
	Max       float64  `json:"max"`
	Histogram []Bucket `json:"histogram"`
}

// Waits computes the distribution of samples using bounds as histogram edges.
func Waits(samples []float64, bounds []float64) WaitStats {
	ws := WaitStats{Count: len(samples), Histogram: histogram(samples, bounds)}
	if len(samples) == 0 {
		return ws
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	ws.Mean = stat.Mean(sorted, nil)
	ws.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	ws.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	ws.Max = sorted[len(sorted)-1]
	return ws
}

func histogram(samples []float64, bounds []float64) []Bucket {
	out := make([]Bucket, len(bounds)+1)
	for i, b := range bounds {
		out[i].Label = fmt.Sprintf("<=%gs", b)
	}
	if len(bounds) > 0 {
		out[len(bounds)].Label = fmt.Sprintf(">%gs", bounds[len(bounds)-1])
	} else {
		out[0].Label = "all"
	}
	for _, s := range samples {
		i := sort.SearchFloat64s(bounds, s)
		out[i].Count++
	}
	return out
}

// Unsatisfied returns the fraction of waits strictly above threshold.
func Unsatisfied(waits []float64, threshold float64) float64 {
	if len(waits) == 0 {
		return 0
	}
	n := 0
	for _, w := range waits {
		if w > threshold {
			n++
		}
	}
	return float64(n) / float64(len(waits))
}
