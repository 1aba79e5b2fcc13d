package lsf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"bsub/internal/apperrors"
	"bsub/internal/observability"
	"bsub/pkg/backoff"
)

// PollMode selects how Wait decides that a job has finished.
type PollMode string

const (
	// PollHistory lists all jobs including finished ones (bjobs -a) and treats
	// DONE, EXIT or absent jobs as finished.
	PollHistory PollMode = "history"
	// PollRunning lists unfinished jobs only (bjobs) and treats absent jobs
	// as finished.
	PollRunning PollMode = "running"
)

// Config holds configuration for a Client. Zero values use defaults.
type Config struct {
	Shell     string         // default: /bin/sh
	SubmitBin string         // default: bsub
	ListBin   string         // default: bjobs
	KillBin   string         // default: bkill
	Backoff   backoff.Config // sleep between status checks
	PollMode  PollMode       // default: PollHistory

	Runner  Runner                 // default: ShellRunner using Shell
	Logger  *slog.Logger           // default: slog.Default()
	Metrics *observability.Metrics // optional
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Shell == "" {
		c.Shell = "/bin/sh"
	}
	if c.SubmitBin == "" {
		c.SubmitBin = "bsub"
	}
	if c.ListBin == "" {
		c.ListBin = "bjobs"
	}
	if c.KillBin == "" {
		c.KillBin = "bkill"
	}
	if c.PollMode == "" {
		c.PollMode = PollHistory
	}
	if c.Runner == nil {
		c.Runner = &ShellRunner{Shell: c.Shell}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Client talks to the scheduler on behalf of Jobs.
//
// A Client holds no per-call state and may be shared. Every method blocks
// until the scheduler has answered or ctx is done.
type Client struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		runner:  cfg.Runner,
		logger:  cfg.Logger.With("component", "lsf"),
		metrics: cfg.Metrics,
	}
}

// run invokes the scheduler and records command metrics.
func (c *Client) run(ctx context.Context, op, command string, stdin io.Reader) (*Result, error) {
	start := time.Now()
	res, err := c.runner.Run(ctx, command, stdin)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordCommand(ctx, op, -1, elapsed)
			c.metrics.RecordCommandError(ctx, op, "exec")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.Exec(op, command, err)
	}

	if c.metrics != nil {
		c.metrics.RecordCommand(ctx, op, res.ExitCode, elapsed)
	}
	return res, nil
}

// recordError counts a classified failure.
func (c *Client) recordError(ctx context.Context, op string, err error) {
	if c.metrics == nil {
		return
	}
	kind := "failure"
	if errors.Is(err, apperrors.ErrJobNotFound) {
		kind = "job_not_found"
	}
	c.metrics.RecordCommandError(ctx, op, kind)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
