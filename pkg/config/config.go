// Package config loads scheduler tuning knobs and topology manifests from
// YAML, for cmd/reactixctl and for embedding programs that would rather
// describe a run declaratively than call pkg/builder directly.
package config

import (
	"fmt"
	"os"

	"github.com/cuemby/reactix/pkg/scheduler"
	"gopkg.in/yaml.v3"
)

// SchedulerConfig is the YAML-loadable mirror of scheduler.Config.
type SchedulerConfig struct {
	FastForward bool      `yaml:"fastForward"`
	KeepAlive   bool      `yaml:"keepAlive"`
	Timeout     *Duration `yaml:"timeout,omitempty"`
}

// ToScheduler converts the YAML-facing config into scheduler.Config.
func (c SchedulerConfig) ToScheduler() scheduler.Config {
	cfg := scheduler.Config{FastForward: c.FastForward, KeepAlive: c.KeepAlive}
	if c.Timeout != nil {
		d := c.Timeout.Dur()
		cfg.Timeout = &d
	}
	return cfg
}

// LoadSchedulerConfig reads and parses a standalone scheduler config file.
func LoadSchedulerConfig(path string) (SchedulerConfig, error) {
	var cfg SchedulerConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scheduler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scheduler config: %w", err)
	}
	return cfg, nil
}
