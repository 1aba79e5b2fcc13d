package lsf

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"bsub/internal/apperrors"
	"bsub/pkg/backoff"
)

// IDSet is an unordered set of scheduler job ids.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids. Empty ids are ignored.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Len returns the number of ids in the set.
func (s IDSet) Len() int {
	return len(s)
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Remove deletes id from the set.
func (s IDSet) Remove(id string) {
	delete(s, id)
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// WaitOptions controls Wait.
type WaitOptions struct {
	// Timeout bounds the whole wait. Zero means no bound beyond ctx.
	Timeout time.Duration
	// Mode overrides the client's poll mode.
	Mode PollMode
}

// Wait blocks until every job in ids has finished.
//
// Each iteration lists jobs and removes finished ids from the pending set; if
// any remain, it sleeps using the client's linear backoff and checks again.
// Exceeding the timeout (or a ctx deadline) returns an apperrors.ErrTimeout
// error; cancelling ctx returns context.Canceled. There is no partial result.
func (c *Client) Wait(ctx context.Context, ids []string, opts WaitOptions) error {
	pending := NewIDSet(ids...)
	if pending.Len() == 0 {
		return nil
	}

	mode := opts.Mode
	if mode == "" {
		mode = c.cfg.PollMode
	}
	if mode != PollHistory && mode != PollRunning {
		return apperrors.Validation("mode", fmt.Sprintf("unknown poll mode %q", mode))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger := c.logger.With("jobs", pending.Sorted(), "mode", string(mode))
	logger.Debug("Waiting for jobs")

	start := time.Now()
	for attempt := 1; ; attempt++ {
		if err := c.sweep(ctx, pending, mode); err != nil {
			c.recordWait(ctx, "wait", false, start)
			return c.waitError("wait", pending.Len(), err)
		}
		if c.metrics != nil {
			c.metrics.RecordPoll(ctx, "wait", pending.Len())
		}
		if pending.Len() == 0 {
			c.recordWait(ctx, "wait", true, start)
			logger.Info("Jobs finished", "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}

		delay := backoff.Linear(attempt, &c.cfg.Backoff)
		logger.Debug("Jobs pending", "pending", pending.Len(), "sleep", delay)
		if err := sleep(ctx, delay); err != nil {
			c.recordWait(ctx, "wait", false, start)
			return c.waitError("wait", pending.Len(), err)
		}
	}
}

// sweep removes finished jobs from pending.
func (c *Client) sweep(ctx context.Context, pending IDSet, mode PollMode) error {
	records, err := c.Jobs(ctx, mode == PollHistory)
	if err != nil {
		return err
	}

	// Array jobs list one row per element, all under the same id. An id is
	// finished only when every one of its rows is.
	finished := make(map[string]bool, len(records))
	for _, r := range records {
		done, seen := finished[r.ID]
		finished[r.ID] = r.Finished() && (done || !seen)
	}

	for id := range pending {
		done, ok := finished[id]
		// Jobs that have aged out of the history are gone for good.
		if !ok || (mode == PollHistory && done) {
			pending.Remove(id)
		}
	}
	return nil
}

// Jobs lists the user's jobs. With all set, finished jobs still held in the
// scheduler's history are included (bjobs -a).
func (c *Client) Jobs(ctx context.Context, all bool) ([]Record, error) {
	command := c.cfg.ListBin
	if all {
		command += " -a"
	}

	res, err := c.run(ctx, "list", command, nil)
	if err != nil {
		return nil, err
	}

	records := ParseListing(res.Output)
	if len(records) == 0 && isEmptyListing(res.Output) {
		return nil, nil
	}
	if res.ExitCode != 0 {
		err := apperrors.Listing("list", command, strings.TrimSpace(res.Output), res.ExitCode)
		c.recordError(ctx, "list", err)
		return nil, err
	}
	return records, nil
}

// Running returns the ids of the user's unfinished (pending or running) jobs.
func (c *Client) Running(ctx context.Context) ([]string, error) {
	records, err := c.Jobs(ctx, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// waitError converts context errors into the error taxonomy.
func (c *Client) waitError(op string, pending int, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(op, pending, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return err
	}
}

func (c *Client) recordWait(ctx context.Context, op string, success bool, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordWait(ctx, op, success, time.Since(start).Seconds())
	}
}
