package dispatch

import "fmt"

// Policy names.
const (
	PolicyBaseline = "baseline"
	PolicyBatched  = "batched"
)

// Config selects the matching policy.
type Config struct {
	Policy string `json:"policy"`
	// BatchInterval is the number of ticks between batched passes.
	BatchInterval int `json:"batch_interval"`
}

// SetDefaults applies the baseline policy and a 30 tick batch interval.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyBaseline
	}
	if c.BatchInterval == 0 {
		c.BatchInterval = 30
	}
}

// Validate checks the policy name and interval.
func (c Config) Validate() error {
	if c.Policy != PolicyBaseline && c.Policy != PolicyBatched {
		return fmt.Errorf("unknown dispatch policy %q", c.Policy)
	}
	if c.BatchInterval < 1 {
		return fmt.Errorf("batch_interval must be at least 1")
	}
	return nil
}
