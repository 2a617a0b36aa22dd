package roadnet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/robotaxi/core/model"
)

// File is the on-disk network description.
type File struct {
	Speed float64 `yaml:"speed"`
	Roads []Road  `yaml:"roads"`
}

// Config selects how the network is built.
type Config struct {
	// File points to a YAML network description. When empty a grid is generated.
	File        string  `json:"file"`
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	BlockLength float64 `json:"block_length"`
	Speed       float64 `json:"speed"`
	// ChargerSites optionally lists fixed charger placements as edge,offset lines.
	ChargerSites string `json:"charger_sites"`
}

// SetDefaults applies a 5x5 grid with 200 m blocks.
func (c *Config) SetDefaults() {
	if c.File == "" {
		if c.Rows == 0 {
			c.Rows = 5
		}
		if c.Cols == 0 {
			c.Cols = 5
		}
		if c.BlockLength == 0 {
			c.BlockLength = 200
		}
	}
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
}

// Validate checks the grid dimensions.
func (c Config) Validate() error {
	if c.File == "" && (c.Rows < 1 || c.Cols < 1 || c.Rows*c.Cols < 2) {
		return fmt.Errorf("grid needs at least two junctions")
	}
	if c.BlockLength < 0 || c.Speed < 0 {
		return fmt.Errorf("block_length and speed must be positive")
	}
	return nil
}

// Open builds the network described by cfg.
func Open(cfg Config) (*Network, error) {
	if cfg.File == "" {
		return New(Grid(cfg.Rows, cfg.Cols, cfg.BlockLength), cfg.Speed)
	}
	f, err := LoadFile(cfg.File)
	if err != nil {
		return nil, err
	}
	speed := cfg.Speed
	if f.Speed > 0 {
		speed = f.Speed
	}
	return New(f.Roads, speed)
}

// LoadFile reads a YAML network description.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse network: %w", err)
	}
	return &f, nil
}

// Grid returns a bidirectional rows x cols street grid.
func Grid(rows, cols int, block float64) []Road {
	name := func(r, c int) string { return fmt.Sprintf("j%d_%d", r, c) }
	var roads []Road
	link := func(a, b string) {
		roads = append(roads,
			Road{ID: a + ">" + b, From: a, To: b, Length: block},
			Road{ID: b + ">" + a, From: b, To: a, Length: block})
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				link(name(r, c), name(r, c+1))
			}
			if r+1 < rows {
				link(name(r, c), name(r+1, c))
			}
		}
	}
	return roads
}

// LoadChargerSites parses edge,offset lines. Blank lines and lines starting
// with # are ignored.
func LoadChargerSites(path string) ([]model.Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open charger sites: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseChargerSites(f)
}

// ParseChargerSites reads charger placements from r.
func ParseChargerSites(r io.Reader) ([]model.Location, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	var out []model.Location
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("charger sites: %w", err)
		}
		pos, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("charger sites: offset %q: %w", rec[1], err)
		}
		out = append(out, model.Location{Edge: strings.TrimSpace(rec[0]), Offset: pos})
	}
	return out, nil
}
