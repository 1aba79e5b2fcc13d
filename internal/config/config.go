// Package config provides configuration loading from a YAML file and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Poll modes understood by the waiter.
const (
	PollModeHistory = "history"
	PollModeRunning = "running"
)

// Config holds configuration for talking to the scheduler.
type Config struct {
	Shell       string         `yaml:"shell"`        // Shell used to run scheduler commands
	SubmitBin   string         `yaml:"submit_bin"`   // Submit command (default: bsub)
	ListBin     string         `yaml:"list_bin"`     // Listing command (default: bjobs)
	KillBin     string         `yaml:"kill_bin"`     // Termination command (default: bkill)
	LogDir      string         `yaml:"log_dir"`      // Directory for -o/-e files when writable (default: logs)
	Poll        PollConfig     `yaml:"poll"`         // Backoff between status checks
	LogLevel    string         `yaml:"log_level"`    // debug, info, warn, error
	LogFormat   string         `yaml:"log_format"`   // text or json
	MetricsAddr string         `yaml:"metrics_addr"` // Serve /metrics here while waiting (empty to skip)
	JobCap      int            `yaml:"job_cap"`      // Default admission ceiling for submit (0 disables)
	Verbose     bool           `yaml:"verbose"`      // Log submission commands at info level
	Defaults    map[string]any `yaml:"defaults"`     // Options merged into every new job
}

// PollConfig holds the linear backoff used by wait and the admission guard.
type PollConfig struct {
	Initial time.Duration `yaml:"initial"`
	Step    time.Duration `yaml:"step"`
	Max     time.Duration `yaml:"max"`
	Mode    string        `yaml:"mode"`
}

// UnmarshalYAML decodes durations with ParseDuration, so a bare number means
// seconds in the file just as it does in the environment. Keys absent from
// the file keep their current values.
func (p *PollConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Initial string `yaml:"initial"`
		Step    string `yaml:"step"`
		Max     string `yaml:"max"`
		Mode    string `yaml:"mode"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	for _, field := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"poll.initial", raw.Initial, &p.Initial},
		{"poll.step", raw.Step, &p.Step},
		{"poll.max", raw.Max, &p.Max},
	} {
		if field.value == "" {
			continue
		}
		d, err := ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = d
	}
	if raw.Mode != "" {
		p.Mode = raw.Mode
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Shell:     "/bin/sh",
		SubmitBin: "bsub",
		ListBin:   "bjobs",
		KillBin:   "bkill",
		LogDir:    "logs",
		Poll: PollConfig{
			Initial: time.Second,
			Step:    250 * time.Millisecond,
			Max:     100 * time.Second,
			Mode:    PollModeHistory,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $BSUB_CONFIG when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = GetEnv("BSUB_CONFIG", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	c.Shell = GetEnv("BSUB_SHELL", c.Shell)
	c.SubmitBin = GetEnv("BSUB_SUBMIT_BIN", c.SubmitBin)
	c.ListBin = GetEnv("BSUB_LIST_BIN", c.ListBin)
	c.KillBin = GetEnv("BSUB_KILL_BIN", c.KillBin)
	c.LogDir = GetEnv("BSUB_LOG_DIR", c.LogDir)
	c.Poll.Initial = GetDurationEnv("BSUB_POLL_INITIAL", c.Poll.Initial)
	c.Poll.Step = GetDurationEnv("BSUB_POLL_STEP", c.Poll.Step)
	c.Poll.Max = GetDurationEnv("BSUB_POLL_MAX", c.Poll.Max)
	c.Poll.Mode = GetEnv("BSUB_POLL_MODE", c.Poll.Mode)
	c.LogLevel = GetEnv("BSUB_LOG_LEVEL", c.LogLevel)
	c.LogFormat = GetEnv("BSUB_LOG_FORMAT", c.LogFormat)
	c.MetricsAddr = GetEnv("BSUB_METRICS_ADDR", c.MetricsAddr)
	c.JobCap = GetIntEnv("BSUB_JOB_CAP", c.JobCap)
	c.Verbose = GetBoolEnv("BSUB_VERBOSE", c.Verbose)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Shell == "" || c.SubmitBin == "" || c.ListBin == "" || c.KillBin == "" {
		return fmt.Errorf("config: shell and scheduler commands must not be empty")
	}
	switch c.Poll.Mode {
	case PollModeHistory, PollModeRunning:
	default:
		return fmt.Errorf("config: unknown poll mode %q", c.Poll.Mode)
	}
	if c.Poll.Initial < 0 || c.Poll.Step < 0 || c.Poll.Max < 0 {
		return fmt.Errorf("config: poll durations must not be negative")
	}
	if c.JobCap < 0 {
		return fmt.Errorf("config: job_cap must not be negative")
	}
	return nil
}
