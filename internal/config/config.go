// Package config holds the chunkforge configuration: defaults, an optional
// YAML file, and CHUNKFORGE_* environment overrides, applied in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Generation modes.
const (
	ModeTemplate = "template"
	ModeDensity  = "density"
)

// Catalog values that do not name a file.
const (
	CatalogAuthored = "authored"
	CatalogVaults   = "vaults"
)

// Config holds all configuration options.
type Config struct {
	Level  Level  `yaml:"level"`
	Stream Stream `yaml:"stream"`
	Store  Store  `yaml:"store"`
}

// Level configures world generation.
type Level struct {
	// ID keys persisted chunks. Empty means a fresh UUID per run.
	ID string `yaml:"id"`
	// Seed for all generation. A seed of 0 means a random seed will be generated.
	Seed uint64 `yaml:"seed"`
	// Mode is "template" or "density".
	Mode string `yaml:"mode"`
	// ChunkSize is the chunk width and height in tiles.
	ChunkSize int `yaml:"chunk_size"`
	// Catalog is "authored", "vaults", or a path to a catalog JSON file.
	Catalog string `yaml:"catalog"`
	// Variants per profile combination when the catalog is authored.
	Variants int `yaml:"variants"`
	// MacroSize is the macro map width and height in cells.
	MacroSize int `yaml:"macro_size"`
}

// Stream configures the chunk lifecycle manager.
type Stream struct {
	LoadRadius         int           `yaml:"load_radius"`
	UnloadRadius       int           `yaml:"unload_radius"`
	Workers            int           `yaml:"workers"`
	MaxStartsPerFrame  int           `yaml:"max_starts_per_frame"`
	MaxAppliesPerFrame int           `yaml:"max_applies_per_frame"`
	FrameBudget        time.Duration `yaml:"frame_budget"`
	MaxAttempts        int           `yaml:"max_attempts"`
}

// Store configures persistence.
type Store struct {
	// Path of the SQLite database. Empty keeps chunks in memory.
	Path     string `yaml:"path"`
	MaxTries int    `yaml:"max_tries"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Level: Level{
			Mode:      ModeTemplate,
			ChunkSize: 64,
			Catalog:   CatalogAuthored,
			Variants:  2,
			MacroSize: 64,
		},
		Stream: Stream{
			LoadRadius:         1,
			UnloadRadius:       2,
			Workers:            4,
			MaxStartsPerFrame:  2,
			MaxAppliesPerFrame: 2,
			FrameBudget:        4 * time.Millisecond,
			MaxAttempts:        3,
		},
		Store: Store{
			Path:     "chunkforge.db",
			MaxTries: 5,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays CHUNKFORGE_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
		return nil
	}

	str("CHUNKFORGE_LEVEL_ID", &c.Level.ID)
	str("CHUNKFORGE_MODE", &c.Level.Mode)
	str("CHUNKFORGE_CATALOG", &c.Level.Catalog)
	str("CHUNKFORGE_DB", &c.Store.Path)
	if v, ok := lookup("CHUNKFORGE_SEED"); ok {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHUNKFORGE_SEED: %w", err)
		}
		c.Level.Seed = s
	}
	if v, ok := lookup("CHUNKFORGE_FRAME_BUDGET"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHUNKFORGE_FRAME_BUDGET: %w", err)
		}
		c.Stream.FrameBudget = d
	}
	for name, dst := range map[string]*int{
		"CHUNKFORGE_CHUNK_SIZE":    &c.Level.ChunkSize,
		"CHUNKFORGE_LOAD_RADIUS":   &c.Stream.LoadRadius,
		"CHUNKFORGE_UNLOAD_RADIUS": &c.Stream.UnloadRadius,
		"CHUNKFORGE_WORKERS":       &c.Stream.Workers,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Finalize fills generated values: a level ID and a seed when unset.
func (c *Config) Finalize() {
	if c.Level.ID == "" {
		c.Level.ID = uuid.NewString()
	}
	if c.Level.Seed == 0 {
		c.Level.Seed = uint64(time.Now().UnixNano())
	}
}

// Validate checks the configuration for values the rest of the program
// cannot work with.
func (c *Config) Validate() error {
	switch c.Level.Mode {
	case ModeTemplate, ModeDensity:
	default:
		return fmt.Errorf("unknown mode %q", c.Level.Mode)
	}
	if c.Level.ChunkSize < 8 || c.Level.ChunkSize > 1024 {
		return fmt.Errorf("chunk_size %d out of range 8..1024", c.Level.ChunkSize)
	}
	if c.Level.MacroSize < 8 {
		return fmt.Errorf("macro_size %d too small", c.Level.MacroSize)
	}
	if c.Level.Catalog == CatalogAuthored && c.Level.Variants < 1 {
		return fmt.Errorf("variants must be positive, got %d", c.Level.Variants)
	}
	s := c.Stream
	if s.LoadRadius < 0 {
		return fmt.Errorf("load_radius %d is negative", s.LoadRadius)
	}
	if s.UnloadRadius <= s.LoadRadius {
		return fmt.Errorf("unload_radius %d must be greater than load_radius %d", s.UnloadRadius, s.LoadRadius)
	}
	if s.Workers < 1 || s.MaxStartsPerFrame < 1 || s.MaxAppliesPerFrame < 1 || s.MaxAttempts < 1 {
		return fmt.Errorf("workers, per-frame limits and max_attempts must be positive")
	}
	if s.FrameBudget <= 0 {
		return fmt.Errorf("frame_budget must be positive")
	}
	return nil
}
