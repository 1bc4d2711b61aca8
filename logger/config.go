package logger

import (
	"os"
	"strings"
)

// Config holds logging configuration. It is embedded in the application
// config file under the "logging" key.
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// DefaultConfig logs warnings and errors to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:          "WARN",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FilePath:       "logs/dungeonrules.log",
		FileFormat:     "json",
		FileMaxSizeMB:  10,
		FileMaxBackups: 3,
		FileMaxAgeDays: 28,
	}
}

// ApplyEnv overrides config values from environment variables.
func (c *Config) ApplyEnv() {
	if level := os.Getenv("DUNGEONRULES_LOG_LEVEL"); level != "" {
		c.Level = strings.ToUpper(level)
	}
	if path := os.Getenv("DUNGEONRULES_LOG_FILE"); path != "" {
		c.FileEnabled = true
		c.FilePath = path
	}
}
