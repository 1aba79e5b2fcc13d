package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bsub.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	if cfg.SubmitBin != "bsub" || cfg.ListBin != "bjobs" || cfg.KillBin != "bkill" {
		t.Errorf("Unexpected scheduler commands: %q %q %q", cfg.SubmitBin, cfg.ListBin, cfg.KillBin)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("Expected log dir 'logs', got %q", cfg.LogDir)
	}
	if cfg.Poll.Initial != time.Second || cfg.Poll.Step != 250*time.Millisecond || cfg.Poll.Max != 100*time.Second {
		t.Errorf("Unexpected poll backoff: %+v", cfg.Poll)
	}
	if cfg.Poll.Mode != PollModeHistory {
		t.Errorf("Expected history mode, got %q", cfg.Poll.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
submit_bin: /opt/lsf/bin/bsub
log_dir: lsf-logs
poll:
  initial: 2s
  step: 500ms
  max: 1m
  mode: running
defaults:
  q: normal
  n: 4
  R: "rusage[mem=1000]"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SubmitBin != "/opt/lsf/bin/bsub" {
		t.Errorf("Expected submit bin from file, got %q", cfg.SubmitBin)
	}
	if cfg.ListBin != "bjobs" {
		t.Errorf("Expected default list bin, got %q", cfg.ListBin)
	}
	if cfg.LogDir != "lsf-logs" {
		t.Errorf("Expected log dir from file, got %q", cfg.LogDir)
	}
	if cfg.Poll.Initial != 2*time.Second || cfg.Poll.Step != 500*time.Millisecond || cfg.Poll.Max != time.Minute {
		t.Errorf("Unexpected poll config: %+v", cfg.Poll)
	}
	if cfg.Poll.Mode != PollModeRunning {
		t.Errorf("Expected running mode, got %q", cfg.Poll.Mode)
	}
	if cfg.Defaults["q"] != "normal" {
		t.Errorf("Expected default queue 'normal', got %v", cfg.Defaults["q"])
	}
	if cfg.Defaults["n"] != 4 {
		t.Errorf("Expected default n=4, got %v", cfg.Defaults["n"])
	}
}

func TestLoad_BareSecondsInFile(t *testing.T) {
	path := writeConfig(t, "poll:\n  initial: 1\n  step: 0.5\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Poll.Initial != time.Second {
		t.Errorf("Expected initial 1s, got %v", cfg.Poll.Initial)
	}
	if cfg.Poll.Step != 500*time.Millisecond {
		t.Errorf("Expected step 500ms, got %v", cfg.Poll.Step)
	}
	if cfg.Poll.Max != 100*time.Second || cfg.Poll.Mode != PollModeHistory {
		t.Errorf("Expected unset poll keys to keep defaults, got %+v", cfg.Poll)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "kill_bin: /usr/bin/bkill\nlog_level: warn\n")

	t.Setenv("BSUB_KILL_BIN", "/custom/bkill")
	t.Setenv("BSUB_POLL_MAX", "10s")
	t.Setenv("BSUB_JOB_CAP", "50")
	t.Setenv("BSUB_VERBOSE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.KillBin != "/custom/bkill" {
		t.Errorf("Expected env to win, got %q", cfg.KillBin)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.Poll.Max != 10*time.Second {
		t.Errorf("Expected poll max from env, got %v", cfg.Poll.Max)
	}
	if cfg.JobCap != 50 {
		t.Errorf("Expected job cap from env, got %d", cfg.JobCap)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose from env")
	}
}

func TestLoad_ConfigFromEnvPath(t *testing.T) {
	path := writeConfig(t, "list_bin: my-bjobs\n")
	t.Setenv("BSUB_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListBin != "my-bjobs" {
		t.Errorf("Expected list bin from BSUB_CONFIG file, got %q", cfg.ListBin)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}

	path := writeConfig(t, "poll: [not, a, map]\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("Expected parse error, got %v", err)
	}

	path = writeConfig(t, "poll:\n  mode: sometimes\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unknown poll mode") {
		t.Errorf("Expected poll mode error, got %v", err)
	}

	path = writeConfig(t, "poll:\n  max: soon\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "poll.max") {
		t.Errorf("Expected poll.max error, got %v", err)
	}

	path = writeConfig(t, "job_cap: -1\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "job_cap") {
		t.Errorf("Expected job cap error, got %v", err)
	}
}
