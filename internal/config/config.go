// ABOUTME: YAML configuration parsing and validation
// ABOUTME: Defines playback, output, remote feed and logging settings with defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Output   OutputConfig   `yaml:"output"`
	Remote   RemoteConfig   `yaml:"remote"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PlaybackConfig struct {
	SampleCount       int  `yaml:"sample_count"`
	TickEpsilonMs     int  `yaml:"tick_epsilon_ms"`
	MinTickIntervalMs int  `yaml:"min_tick_interval_ms"`
	FinishDelayMs     int  `yaml:"finish_delay_ms"`
	Strict            bool `yaml:"strict"`
	// TempDir is where payloads are staged while loaded; empty uses the OS temp dir
	TempDir string `yaml:"temp_dir"`
}

type OutputConfig struct {
	Backend    string `yaml:"backend"`
	SampleRate int    `yaml:"sample_rate"`
	Volume     int    `yaml:"volume"`
}

type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Advertise bool   `yaml:"advertise"`
	Name      string `yaml:"name"`
}

type LoggingConfig struct {
	File string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			SampleCount:       20,
			TickEpsilonMs:     30,
			MinTickIntervalMs: 10,
			FinishDelayMs:     600,
		},
		Output: OutputConfig{
			Backend:    "oto",
			SampleRate: 48000,
			Volume:     100,
		},
		Remote: RemoteConfig{
			Listen: ":8927",
			Name:   "waveplay",
		},
		Logging: LoggingConfig{
			File: "waveplay.log",
		},
	}
}

// Load reads a YAML file over the defaults; keys missing from the file keep their default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MaxSampleCount bounds the waveform resolution
const MaxSampleCount = 10000

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error

	if c.Playback.SampleCount < 1 || c.Playback.SampleCount > MaxSampleCount {
		errs = append(errs, fmt.Errorf("playback.sample_count must be 1-%d, got %d", MaxSampleCount, c.Playback.SampleCount))
	}
	if c.Playback.TickEpsilonMs < 0 {
		errs = append(errs, fmt.Errorf("playback.tick_epsilon_ms must not be negative, got %d", c.Playback.TickEpsilonMs))
	}
	if c.Playback.MinTickIntervalMs < 1 {
		errs = append(errs, fmt.Errorf("playback.min_tick_interval_ms must be positive, got %d", c.Playback.MinTickIntervalMs))
	}
	if c.Playback.FinishDelayMs < 0 {
		errs = append(errs, fmt.Errorf("playback.finish_delay_ms must not be negative, got %d", c.Playback.FinishDelayMs))
	}

	switch c.Output.Backend {
	case "oto", "portaudio", "null":
	default:
		errs = append(errs, fmt.Errorf("output.backend must be oto, portaudio or null, got %q", c.Output.Backend))
	}
	if c.Output.SampleRate < 8000 || c.Output.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("output.sample_rate out of range: %d", c.Output.SampleRate))
	}
	if c.Output.Volume < 0 || c.Output.Volume > 100 {
		errs = append(errs, fmt.Errorf("output.volume must be 0-100, got %d", c.Output.Volume))
	}

	if c.Remote.Enabled && c.Remote.Listen == "" {
		errs = append(errs, errors.New("remote.listen is required when remote is enabled"))
	}

	return errors.Join(errs...)
}

// TickEpsilon returns the tick epsilon as a duration
func (p PlaybackConfig) TickEpsilon() time.Duration {
	return time.Duration(p.TickEpsilonMs) * time.Millisecond
}

// MinTickInterval returns the minimum tick interval as a duration
func (p PlaybackConfig) MinTickInterval() time.Duration {
	return time.Duration(p.MinTickIntervalMs) * time.Millisecond
}

// FinishDelay returns the finish display delay as a duration
func (p PlaybackConfig) FinishDelay() time.Duration {
	return time.Duration(p.FinishDelayMs) * time.Millisecond
}
