package charging

import "fmt"

// Policy names.
const (
	PolicyBaseline = "baseline"
	PolicyForecast = "forecast"
)

// Config tunes the charging decision. Thresholds are battery percentages.
type Config struct {
	Policy string `json:"policy"`
	// RandomMin and RandomMax bound the per-evaluation threshold of the
	// baseline policy.
	RandomMin float64 `json:"random_min"`
	RandomMax float64 `json:"random_max"`
	// Hard forces charging; below Soft the price forecast decides.
	Hard float64 `json:"hard"`
	Soft float64 `json:"soft"`
	// Horizon is the number of forecast points, Step their spacing in
	// simulated seconds.
	Horizon int     `json:"horizon"`
	Step    float64 `json:"step"`
}

// SetDefaults applies the baseline policy with a 20-40% threshold.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyBaseline
	}
	if c.RandomMin == 0 && c.RandomMax == 0 {
		c.RandomMin, c.RandomMax = 20, 40
	}
	if c.Hard == 0 {
		c.Hard = 15
	}
	if c.Soft == 0 {
		c.Soft = 40
	}
	if c.Horizon == 0 {
		c.Horizon = 4
	}
	if c.Step == 0 {
		c.Step = 3600
	}
}

// Validate checks threshold ordering.
func (c Config) Validate() error {
	if c.Policy != PolicyBaseline && c.Policy != PolicyForecast {
		return fmt.Errorf("unknown charging policy %q", c.Policy)
	}
	if c.RandomMin < 0 || c.RandomMax > 100 || c.RandomMin > c.RandomMax {
		return fmt.Errorf("invalid random threshold range [%v, %v]", c.RandomMin, c.RandomMax)
	}
	if c.Hard < 0 || c.Soft > 100 || c.Hard > c.Soft {
		return fmt.Errorf("hard threshold %v must not exceed soft threshold %v", c.Hard, c.Soft)
	}
	if c.Horizon < 1 || c.Step <= 0 {
		return fmt.Errorf("forecast horizon and step must be positive")
	}
	return nil
}
