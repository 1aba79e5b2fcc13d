// Package health checks that the scheduler's commands and the log directory
// are usable before any job is submitted.
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Probe checks a single dependency.
type Probe interface {
	Ready(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

// Ready calls f.
func (f ProbeFunc) Ready(ctx context.Context) error {
	return f(ctx)
}

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult contains the result of a health check.
type CheckResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the health check response. Checks keep registration order.
type Response struct {
	Status Status        `json:"status"`
	Checks []CheckResult `json:"checks,omitempty"`
}

type check struct {
	name     string
	probe    Probe
	optional bool
}

// Checker runs registered probes.
type Checker struct {
	checks  []check
	timeout time.Duration
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{timeout: 5 * time.Second}
}

// Require registers a probe whose failure makes the whole response unhealthy.
func (c *Checker) Require(name string, probe Probe) *Checker {
	c.checks = append(c.checks, check{name: name, probe: probe})
	return c
}

// Prefer registers a probe whose failure only degrades the response.
func (c *Checker) Prefer(name string, probe Probe) *Checker {
	c.checks = append(c.checks, check{name: name, probe: probe, optional: true})
	return c
}

// Readiness runs every probe, each bounded by the checker's timeout.
func (c *Checker) Readiness(ctx context.Context) *Response {
	resp := &Response{Status: StatusHealthy}
	if len(c.checks) == 0 {
		resp.Status = StatusUnhealthy
		resp.Checks = append(resp.Checks, CheckResult{
			Name:    "probes",
			Status:  StatusUnhealthy,
			Message: "no probes configured",
		})
		return resp
	}

	for _, chk := range c.checks {
		result := c.run(ctx, chk)
		resp.Checks = append(resp.Checks, result)

		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

func (c *Checker) run(ctx context.Context, chk check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := chk.probe.Ready(ctx); err != nil {
		status := StatusUnhealthy
		if chk.optional {
			status = StatusDegraded
		}
		return CheckResult{Name: chk.name, Status: status, Message: err.Error()}
	}
	return CheckResult{Name: chk.name, Status: StatusHealthy}
}

// IsHealthy returns true if the overall status is healthy.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// Command returns a probe that resolves the program a shell command line
// would run: its first word, looked up in PATH unless it contains a slash.
func Command(commandLine string) Probe {
	return ProbeFunc(func(ctx context.Context) error {
		fields := strings.Fields(commandLine)
		if len(fields) == 0 {
			return fmt.Errorf("empty command")
		}
		_, err := exec.LookPath(fields[0])
		return err
	})
}

// WritableDir returns a probe that fails unless dir is an existing,
// writable directory.
func WritableDir(dir string) Probe {
	return ProbeFunc(func(ctx context.Context) error {
		if dir == "" {
			return fmt.Errorf("no directory configured")
		}
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		if err := unix.Access(dir, unix.W_OK); err != nil {
			return fmt.Errorf("%s is not writable: %w", dir, err)
		}
		return nil
	})
}
