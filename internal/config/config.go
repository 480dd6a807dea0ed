// Package config loads settings for the axon command.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AXON_LOG_LEVEL or
// AXON_OUTPUT_TIME_SERIES.
const EnvPrefix = "AXON"

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Output struct {
		CompactJSON bool   `mapstructure:"compact_json"`
		TimeSeries  bool   `mapstructure:"time_series"`
		BaseDate    string `mapstructure:"base_date"` // yyyy-MM-dd, empty = derive
	} `mapstructure:"output"`

	REPL struct {
		HistoryFile string `mapstructure:"history_file"`
		HistoryMax  int    `mapstructure:"history_max"`
		Prompt      string `mapstructure:"prompt"`
	} `mapstructure:"repl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("output.compact_json", false)
	v.SetDefault("output.time_series", false)
	v.SetDefault("output.base_date", "")
	v.SetDefault("repl.history_file", defaultHistoryPath())
	v.SetDefault("repl.history_max", 2000)
	v.SetDefault("repl.prompt", "axon> ")
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".axon_history"
	}
	return filepath.Join(home, ".axon_history")
}

// LoadConfig reads the YAML file at path (skipped when path is empty), then
// applies AXON_* environment overrides on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Level returns the configured slog level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// BaseDate returns output.base_date, or the zero time when unset.
func (c *Config) BaseDate() (time.Time, error) {
	if c.Output.BaseDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, c.Output.BaseDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("output.base_date: %w", err)
	}
	return t, nil
}
