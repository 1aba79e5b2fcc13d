package lsf

import (
	"context"
	"strings"

	"bsub/internal/apperrors"
)

// Kill terminates jobs. Numeric targets are treated as job ids and sent in a
// single invocation; any other target is a job name and gets its own
// "-J name" invocation. Duplicates are dropped. The first failure is
// returned.
func (c *Client) Kill(ctx context.Context, targets ...string) error {
	var ids, names []string
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if isNumeric(t) {
			ids = append(ids, t)
		} else {
			names = append(names, t)
		}
	}

	if len(ids) == 0 && len(names) == 0 {
		return apperrors.Validation("targets", "no job ids or names given")
	}

	if len(ids) > 0 {
		if err := c.kill(ctx, c.cfg.KillBin+" "+strings.Join(ids, " "), len(ids)); err != nil {
			return err
		}
	}
	for _, name := range names {
		if err := c.kill(ctx, c.cfg.KillBin+" -J "+quote(name), 1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) kill(ctx context.Context, command string, count int) error {
	c.logger.Debug("Terminating jobs", "command", command)

	res, err := c.run(ctx, "kill", command, nil)
	if err != nil {
		return err
	}
	if err := classify("kill", res, terminatedPhrase); err != nil {
		c.recordError(ctx, "kill", err)
		return err
	}

	if c.metrics != nil {
		c.metrics.RecordJobsKilled(ctx, count)
	}
	c.logger.Info("Jobs terminating", "command", command)
	return nil
}
