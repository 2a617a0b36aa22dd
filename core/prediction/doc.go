// Package prediction provides electricity price forecasts consumed by the
// charging policy. Forecasters are black boxes to the engine: it only asks
// for the next few interval prices.
package prediction
