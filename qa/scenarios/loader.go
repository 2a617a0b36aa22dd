// Package scenarios runs scripted offline simulations: a fleet configuration,
// a tick budget and commands injected at fixed ticks, checked against
// expected outcomes.
package scenarios

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/robotaxi/app"
	"github.com/kilianp07/robotaxi/core/command"
)

// TimedCommand is injected before tick At runs.
type TimedCommand struct {
	At    int    `json:"at"`
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Expected bounds the final snapshot.
type Expected struct {
	MinCompleted int `json:"min_completed"`
	// MaxUnsatisfied is compared against the unsatisfied fraction; zero
	// disables the check.
	MaxUnsatisfied    float64  `json:"max_unsatisfied"`
	MinProfit         *float64 `json:"min_profit"`
	MaxUnderfulfilled *int     `json:"max_underfulfilled"`
}

// Scenario is a scripted run.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Ticks       int    `json:"ticks"`
	// SampleEvery is the pricing sample period in ticks.
	SampleEvery int `json:"sample_every"`

	app.EngineSections `json:",squash"`

	Commands []TimedCommand `json:"commands"`
	Expect   Expected       `json:"expect"`
}

// Load reads a YAML or JSON scenario file.
func Load(path string) (*Scenario, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", path)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	var sc Scenario
	if err := k.UnmarshalWithConf("", &sc, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return &sc, nil
}

// Validate checks the script. Engine sections are checked when the engine
// is built.
func (s *Scenario) Validate() error {
	if s.Ticks < 1 {
		return fmt.Errorf("ticks must be at least 1")
	}
	if s.SampleEvery < 0 {
		return fmt.Errorf("sample_every must not be negative")
	}
	for i, c := range s.Commands {
		if c.At < 0 || c.At >= s.Ticks {
			return fmt.Errorf("command %d: tick %d outside [0, %d)", i, c.At, s.Ticks)
		}
		if _, err := command.Parse(c.Kind, c.Count); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}
