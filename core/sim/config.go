package sim

import (
	"fmt"
	"time"
)

// Config holds the start parameters of a run.
type Config struct {
	Seed int64 `json:"seed"`
	// StepLength is the simulated seconds per tick.
	StepLength float64 `json:"step_length"`
	// TickInterval throttles ticks against the wall clock; zero runs unthrottled.
	TickInterval time.Duration `json:"tick_interval"`
	// Duration stops the run after this many simulated seconds; zero runs until stopped.
	Duration float64 `json:"duration"`

	NumTaxis        int `json:"num_taxis"`
	NumReservations int `json:"num_reservations"`
	NumChargers     int `json:"num_chargers"`

	BatteryCapacity  float64 `json:"battery_capacity"`
	ConsumptionPerKm float64 `json:"consumption_per_km"`
	// Cooldown is how long an out-of-commission taxi stays out, in simulated seconds.
	Cooldown float64 `json:"cooldown"`

	ReportEvery          int     `json:"report_every"`
	UnsatisfiedThreshold float64 `json:"unsatisfied_threshold"`
	// SpawnAttempts bounds the random draws used to find a feasible trip.
	SpawnAttempts int `json:"spawn_attempts"`
}

// SetDefaults fills unset fields. Counts are left alone so that Validate can
// reject a missing fleet size.
func (c *Config) SetDefaults() {
	if c.StepLength == 0 {
		c.StepLength = 1
	}
	if c.BatteryCapacity == 0 {
		c.BatteryCapacity = 50
	}
	if c.ConsumptionPerKm == 0 {
		c.ConsumptionPerKm = 0.2
	}
	if c.Cooldown == 0 {
		c.Cooldown = 1800
	}
	if c.ReportEvery == 0 {
		c.ReportEvery = 50
	}
	if c.UnsatisfiedThreshold == 0 {
		c.UnsatisfiedThreshold = 600
	}
	if c.SpawnAttempts == 0 {
		c.SpawnAttempts = 20
	}
}

// Validate checks the start parameters.
func (c Config) Validate() error {
	if c.NumTaxis < 1 {
		return fmt.Errorf("num_taxis must be at least 1, got %d", c.NumTaxis)
	}
	if c.NumReservations < 1 {
		return fmt.Errorf("num_reservations must be at least 1, got %d", c.NumReservations)
	}
	if c.NumChargers < 0 {
		return fmt.Errorf("num_chargers must not be negative, got %d", c.NumChargers)
	}
	if c.StepLength <= 0 {
		return fmt.Errorf("step_length must be positive")
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("tick_interval must not be negative")
	}
	if c.BatteryCapacity <= 0 || c.ConsumptionPerKm < 0 {
		return fmt.Errorf("invalid battery parameters")
	}
	if c.Cooldown < 0 || c.ReportEvery < 1 || c.SpawnAttempts < 1 {
		return fmt.Errorf("cooldown, report_every and spawn_attempts must be positive")
	}
	return nil
}
