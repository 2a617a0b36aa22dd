package economics

import (
	"fmt"
	"sort"
)

// TODClass is the time-of-day rate class of an interval.
type TODClass string

const (
	TODNormal      TODClass = "normal"
	TODMorningRush TODClass = "morning_rush"
	TODEveningRush TODClass = "evening_rush"
)

// Interval is one slice of the simulated day. Hours are scaled onto the
// configured day length.
type Interval struct {
	Name      string   `json:"name"`
	StartHour float64  `json:"start_hour"`
	EndHour   float64  `json:"end_hour"`
	DemandMin float64  `json:"demand_min"`
	DemandMax float64  `json:"demand_max"`
	TOD       TODClass `json:"tod"`
	PriceMin  float64  `json:"price_min"`
	PriceMax  float64  `json:"price_max"`
}

// Tariff holds the fixed fares and fees.
type Tariff struct {
	BaseFare  float64 `json:"base_fare"`
	PerKm     float64 `json:"per_km"`
	ChargeFee float64 `json:"charge_fee"`
	TowFee    float64 `json:"tow_fee"`
}

// Config describes the economic model.
type Config struct {
	// DayLength is the number of simulated seconds in one modeled day.
	DayLength  float64              `json:"day_length"`
	Intervals  []Interval           `json:"intervals"`
	TODRates   map[TODClass]float64 `json:"tod_rates"`
	DemandMin  float64              `json:"demand_floor"`
	DemandMax  float64              `json:"demand_ceiling"`
	WindowSize int                  `json:"window_size"`
	Tariff     Tariff               `json:"tariff"`
}

// DefaultIntervals is a five-period day.
func DefaultIntervals() []Interval {
	return []Interval{
		{Name: "night", StartHour: 0, EndHour: 6, DemandMin: 0.5, DemandMax: 0.8, TOD: TODNormal, PriceMin: 0.10, PriceMax: 0.15},
		{Name: "morning_rush", StartHour: 6, EndHour: 9, DemandMin: 1.2, DemandMax: 1.6, TOD: TODMorningRush, PriceMin: 0.25, PriceMax: 0.35},
		{Name: "midday", StartHour: 9, EndHour: 16, DemandMin: 0.9, DemandMax: 1.1, TOD: TODNormal, PriceMin: 0.18, PriceMax: 0.25},
		{Name: "evening_rush", StartHour: 16, EndHour: 19, DemandMin: 1.3, DemandMax: 1.7, TOD: TODEveningRush, PriceMin: 0.30, PriceMax: 0.40},
		{Name: "evening", StartHour: 19, EndHour: 24, DemandMin: 0.8, DemandMax: 1.0, TOD: TODNormal, PriceMin: 0.15, PriceMax: 0.22},
	}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.DayLength == 0 {
		c.DayLength = 86400
	}
	if len(c.Intervals) == 0 {
		c.Intervals = DefaultIntervals()
	}
	if c.TODRates == nil {
		c.TODRates = map[TODClass]float64{}
	}
	for k, v := range map[TODClass]float64{TODNormal: 1.0, TODMorningRush: 1.5, TODEveningRush: 2.0} {
		if _, ok := c.TODRates[k]; !ok {
			c.TODRates[k] = v
		}
	}
	if c.DemandMin == 0 {
		c.DemandMin = 0.5
	}
	if c.DemandMax == 0 {
		c.DemandMax = 2.5
	}
	if c.WindowSize == 0 {
		c.WindowSize = 3
	}
	if c.Tariff == (Tariff{}) {
		c.Tariff = Tariff{BaseFare: 5, PerKm: 1.5, ChargeFee: 2, TowFee: 50}
	}
}

// Validate checks that the intervals tile the day without overlap.
func (c Config) Validate() error {
	if c.DayLength <= 0 {
		return fmt.Errorf("day_length must be positive")
	}
	if c.DemandMin <= 0 || c.DemandMax < c.DemandMin {
		return fmt.Errorf("invalid demand band [%v, %v]", c.DemandMin, c.DemandMax)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1")
	}
	iv := append([]Interval(nil), c.Intervals...)
	sort.Slice(iv, func(i, j int) bool { return iv[i].StartHour < iv[j].StartHour })
	end := 0.0
	for _, in := range iv {
		if in.StartHour != end {
			return fmt.Errorf("interval %s: starts at %v, expected %v", in.Name, in.StartHour, end)
		}
		if in.EndHour <= in.StartHour {
			return fmt.Errorf("interval %s: empty", in.Name)
		}
		if in.DemandMin > in.DemandMax || in.PriceMin > in.PriceMax {
			return fmt.Errorf("interval %s: min above max", in.Name)
		}
		if _, ok := c.TODRates[in.TOD]; !ok {
			return fmt.Errorf("interval %s: unknown tod class %q", in.Name, in.TOD)
		}
		end = in.EndHour
	}
	if end != 24 {
		return fmt.Errorf("intervals end at hour %v, expected 24", end)
	}
	return nil
}
