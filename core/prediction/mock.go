package prediction

// MockPredictor returns a fixed forecast.
type MockPredictor struct {
	Prices []float64
	Err    error
	Calls  int
}

// Forecast returns the configured prices truncated to horizon.
func (m *MockPredictor) Forecast(_, _ float64, horizon int) ([]float64, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Prices) == 0 {
		return nil, ErrNoForecast
	}
	n := horizon
	if n > len(m.Prices) {
		n = len(m.Prices)
	}
	cp := make([]float64, n)
	copy(cp, m.Prices[:n])
	return cp, nil
}
