package lsf

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"bsub/internal/apperrors"
	"bsub/pkg/backoff"
)

// SubmitOptions controls a single submission.
type SubmitOptions struct {
	// JobCap, when positive, blocks the submission until fewer than JobCap
	// of the user's jobs are unfinished. See Client.Cap.
	JobCap int
}

// Submit submits job and records the scheduler's id in job.ID.
//
// A non-empty input is an inline shell command fed to bsub on stdin; it takes
// precedence over job.Script. With an empty input the job's script is
// redirected to stdin instead, and a job without a script is rejected.
func (c *Client) Submit(ctx context.Context, job *Job, input string, opts SubmitOptions) error {
	return c.submit(ctx, job, input, opts, false)
}

func (c *Client) submit(ctx context.Context, job *Job, input string, opts SubmitOptions, chained bool) error {
	if input == "" && job.Script == "" {
		return apperrors.Validation("input", "no input string given and job has no script")
	}

	if opts.JobCap > 0 {
		if err := c.Cap(ctx, opts.JobCap); err != nil {
			return err
		}
	}

	var stdin io.Reader
	if input != "" {
		stdin = strings.NewReader(input + "\n")
	}
	command := job.Command(c.cfg.SubmitBin, input == "")

	logger := c.logger.With("name", job.Name())
	level := slog.LevelDebug
	if job.Verbose {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "Submitting job", "command", command, "input", input)

	res, err := c.run(ctx, "submit", command, stdin)
	if err != nil {
		return err
	}

	if err := classify("submit", res, submittedPhrase); err != nil {
		c.recordError(ctx, "submit", err)
		logger.Debug("Submission rejected", "exitCode", res.ExitCode, "output", res.Output)
		return err
	}

	id, ok := parseJobID(res.Output)
	if !ok {
		err := apperrors.Submission("submit", command, strings.TrimSpace(res.Output), res.ExitCode)
		c.recordError(ctx, "submit", err)
		return err
	}
	job.ID = id

	if c.metrics != nil {
		c.metrics.RecordJobSubmitted(ctx, queueOf(job), chained)
	}
	logger.Log(ctx, level, "Job submitted", "jobId", id)

	return nil
}

// Cap blocks until fewer than max jobs are unfinished, polling with the
// client's linear backoff. A max of zero or less returns immediately.
func (c *Client) Cap(ctx context.Context, max int) error {
	if max <= 0 {
		return nil
	}

	start := time.Now()
	for attempt := 1; ; attempt++ {
		running, err := c.Running(ctx)
		if err != nil {
			c.recordWait(ctx, "cap", false, start)
			return c.waitError("cap", 0, err)
		}
		if c.metrics != nil {
			c.metrics.RecordPoll(ctx, "cap", len(running))
		}
		if len(running) < max {
			c.recordWait(ctx, "cap", true, start)
			return nil
		}

		delay := backoff.Linear(attempt, &c.cfg.Backoff)
		c.logger.Debug("Job cap reached, waiting", "running", len(running), "max", max, "sleep", delay)
		if err := sleep(ctx, delay); err != nil {
			c.recordWait(ctx, "cap", false, start)
			return c.waitError("cap", 0, err)
		}
	}
}

// queueOf returns the -q option of job, if set as text.
func queueOf(job *Job) string {
	if v, ok := job.Options["q"]; ok && v.Kind() == KindText {
		return v.text
	}
	return ""
}
