package prediction

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/kilianp07/robotaxi/core/economics"
)

// ErrNoForecast is returned when a predictor has nothing to offer.
var ErrNoForecast = errors.New("no forecast available")

// PricePredictor forecasts electricity prices for the next horizon
// intervals, each step seconds long, after now.
type PricePredictor interface {
	Forecast(now, step float64, horizon int) ([]float64, error)
}

// ScheduleForecaster samples each future interval's configured price range.
type ScheduleForecaster struct {
	schedule *economics.Schedule

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduleForecaster returns a forecaster drawing from seed.
func NewScheduleForecaster(s *economics.Schedule, seed int64) *ScheduleForecaster {
	return &ScheduleForecaster{schedule: s, rng: rand.New(rand.NewSource(seed))}
}

// Forecast returns horizon price points at now+step, now+2*step, ...
func (f *ScheduleForecaster) Forecast(now, step float64, horizon int) ([]float64, error) {
	if horizon <= 0 || step <= 0 {
		return nil, ErrNoForecast
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float64, horizon)
	for i := range out {
		in := f.schedule.At(now + float64(i+1)*step)
		out[i] = in.PriceMin + f.rng.Float64()*(in.PriceMax-in.PriceMin)
	}
	return out, nil
}
