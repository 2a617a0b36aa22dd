package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/robotaxi/core/charging"
	"github.com/kilianp07/robotaxi/core/dispatch"
	"github.com/kilianp07/robotaxi/core/economics"
	"github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/core/sim"
	"github.com/kilianp07/robotaxi/core/triplog"
	"github.com/kilianp07/robotaxi/infra/logger"
	"github.com/kilianp07/robotaxi/infra/monitoring"
	"github.com/kilianp07/robotaxi/infra/mqtt"
	"github.com/kilianp07/robotaxi/infra/roadnet"
)

// EnvPrefix marks environment overrides: K_SIMULATION__NUM_TAXIS=20 sets
// simulation.num_taxis.
const EnvPrefix = "K_"

type Config struct {
	Simulation sim.Config              `json:"simulation"`
	Network    roadnet.Config          `json:"network"`
	Dispatch   dispatch.Config         `json:"dispatch"`
	Charging   charging.Config         `json:"charging"`
	Economics  economics.Config        `json:"economics"`
	MQTT       mqtt.Config             `json:"mqtt"`
	Metrics    metrics.Config          `json:"metrics"`
	HTTP       HTTPConfig              `json:"http"`
	Log        logger.Config           `json:"log"`
	TripLog    triplog.Config          `json:"triplog"`
	Sentry     monitoring.SentryConfig `json:"sentry"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	// Addr disables the API when empty, e.g. ":8080".
	Addr string `json:"addr"`
	// Token guards command submission and the trip log.
	Token string `json:"token"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Network.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Charging.SetDefaults()
	c.Economics.SetDefaults()
	c.TripLog.SetDefaults()
}

// Validate checks every section and reports the first failure.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"simulation", c.Simulation.Validate},
		{"network", c.Network.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"charging", c.Charging.Validate},
		{"economics", c.Economics.Validate},
		{"mqtt", c.MQTT.Validate},
		{"triplog", c.TripLog.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
