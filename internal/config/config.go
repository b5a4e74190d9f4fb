// Package config loads the TOML configuration of the demo binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration.
type Config struct {
	Log       Log       `toml:"log"`
	Scheduler Scheduler `toml:"scheduler"`
	Metrics   Metrics   `toml:"metrics"`
	Demo      Demo      `toml:"demo"`
}

// Log configures the zap logger.
type Log struct {
	Level string `toml:"level"`
	// File receives JSON logs through a rotating writer. Empty logs to
	// stdout only.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Scheduler configures the cooperative scheduler.
type Scheduler struct {
	// Mode selects the wait handler: "coop" parks tasks on a
	// poll(2) reactor, "select" blocks each goroutine in poll(2),
	// "off" registers none.
	Mode          string `toml:"mode"`
	Concurrency   int    `toml:"concurrency"`
	BatchSize     int    `toml:"batch_size"`
	PollTimeoutMS int    `toml:"poll_timeout_ms"`
}

// PollTimeout returns the reactor poll timeout.
func (s Scheduler) PollTimeout() time.Duration {
	return time.Duration(s.PollTimeoutMS) * time.Millisecond
}

// Metrics configures the prometheus endpoint.
type Metrics struct {
	// Listen is the address of the /metrics endpoint. Empty disables
	// it.
	Listen string `toml:"listen"`
}

// Demo configures the workload run by the demo binary.
type Demo struct {
	Addr        string `toml:"addr"`
	Connections int    `toml:"connections"`
	Clients     int    `toml:"clients"`
	Queries     int    `toml:"queries"`
	LatencyMS   int    `toml:"latency_ms"`
}

// Latency returns the simulated server latency.
func (d Demo) Latency() time.Duration {
	return time.Duration(d.LatencyMS) * time.Millisecond
}

// Mode values accepted by Scheduler.Mode.
const (
	ModeCoop   = "coop"
	ModeSelect = "select"
	ModeOff    = "off"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Scheduler: Scheduler{
			Mode:          ModeCoop,
			Concurrency:   128,
			BatchSize:     64,
			PollTimeoutMS: 50,
		},
		Demo: Demo{
			Addr:        "127.0.0.1:0",
			Connections: 4,
			Clients:     16,
			Queries:     8,
			LatencyMS:   5,
		},
	}
}

// Load reads the file at path over the defaults and validates the
// result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the binary cannot run
// with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	switch c.Scheduler.Mode {
	case ModeCoop, ModeSelect, ModeOff:
	default:
		errs = append(errs, fmt.Errorf("scheduler.mode: unknown mode %q", c.Scheduler.Mode))
	}
	if c.Scheduler.Concurrency < 1 {
		errs = append(errs, errors.New("scheduler.concurrency must be positive"))
	}
	if c.Scheduler.BatchSize < 1 {
		errs = append(errs, errors.New("scheduler.batch_size must be positive"))
	}
	if c.Scheduler.PollTimeoutMS < 1 {
		errs = append(errs, errors.New("scheduler.poll_timeout_ms must be positive"))
	}

	if c.Demo.Connections < 1 {
		errs = append(errs, errors.New("demo.connections must be positive"))
	}
	if c.Demo.Clients < 1 {
		errs = append(errs, errors.New("demo.clients must be positive"))
	}
	if c.Demo.Queries < 0 {
		errs = append(errs, errors.New("demo.queries must not be negative"))
	}
	if c.Demo.LatencyMS < 0 {
		errs = append(errs, errors.New("demo.latency_ms must not be negative"))
	}

	return errors.Join(errs...)
}
