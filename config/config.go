// Package config loads the dungeonrules.yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/dungeonrules/logger"
)

// Version of the configuration format.
const Version = 1

// DefaultPath is read when no --config flag is given.
const DefaultPath = "dungeonrules.yaml"

// Config is the application configuration.
type Config struct {
	Version  int    `yaml:"version"`
	Dungeon  string `yaml:"dungeon"`   // directory of .lua files
	Seed     int64  `yaml:"seed"`      // 0 picks a time based seed
	MaxRooms int    `yaml:"max_rooms"` // overrides the dungeon's own limit when > 0
	Attempts int    `yaml:"attempts"`
	History  string `yaml:"history"` // sqlite path, empty disables
	SaveDir  string `yaml:"save_dir"`

	Logging logger.Config `yaml:"logging"`
}

// Default returns a usable configuration.
func Default() *Config {
	return &Config{
		Version:  Version,
		Attempts: 1,
		History:  "data/history.db",
		SaveDir:  "saves",
		Logging:  logger.DefaultConfig(),
	}
}

// Load reads a configuration file over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.Version = 0
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a file may have set.
func (c *Config) Validate() error {
	var errs []error
	if c.Version != Version {
		errs = append(errs, fmt.Errorf("unsupported config version %d (want %d)", c.Version, Version))
	}
	if c.MaxRooms < 0 {
		errs = append(errs, errors.New("max_rooms must not be negative"))
	}
	if c.Attempts < 0 {
		errs = append(errs, errors.New("attempts must not be negative"))
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides config values from environment variables.
func (c *Config) ApplyEnv() error {
	c.Logging.ApplyEnv()
	if s := os.Getenv("DUNGEONRULES_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("DUNGEONRULES_SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

// ResolveSeed returns the configured seed, or a time based one when it is 0.
func (c *Config) ResolveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}
