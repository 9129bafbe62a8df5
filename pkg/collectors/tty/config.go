package tty

import (
	"fmt"
	"time"
)

// Config holds TTY collector configuration
type Config struct {
	Name                string        `json:"name" yaml:"name"`
	BPFObjectPath       string        `json:"bpf_object_path" yaml:"bpf_object_path"`
	PollTimeout         time.Duration `json:"poll_timeout" yaml:"poll_timeout"`
	CalibrationInterval time.Duration `json:"calibration_interval" yaml:"calibration_interval"`
	DriftThreshold      time.Duration `json:"drift_threshold" yaml:"drift_threshold"`
	StatsInterval       time.Duration `json:"stats_interval" yaml:"stats_interval"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:                "tty",
		BPFObjectPath:       "bpf/parrotty.bpf.o",
		PollTimeout:         100 * time.Millisecond,
		CalibrationInterval: 60 * time.Second,
		DriftThreshold:      time.Millisecond,
		StatsInterval:       30 * time.Second,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collector name must not be empty")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %v", c.PollTimeout)
	}
	if c.CalibrationInterval <= 0 {
		return fmt.Errorf("calibration interval must be positive, got %v", c.CalibrationInterval)
	}
	if c.DriftThreshold <= 0 {
		return fmt.Errorf("drift threshold must be positive, got %v", c.DriftThreshold)
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("stats interval must be positive, got %v", c.StatsInterval)
	}
	return nil
}
