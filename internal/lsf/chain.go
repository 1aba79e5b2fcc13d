package lsf

import (
	"context"
	"fmt"

	"bsub/internal/apperrors"
)

// ThenOptions customizes the job created by Then.
type ThenOptions struct {
	// Name of the new job. Defaults to the predecessor's name.
	Name string
	// Options replace or extend the options inherited from the predecessor.
	Options Options
}

// Then submits a job that the scheduler will not start until prev is done.
//
// The new job inherits prev's script, verbosity, log directory and options
// (merged with opts.Options), and carries a -w "done(<id>)" clause during
// submission. The clause is removed from the returned job's options so that
// chaining from it does not accumulate stale dependencies. prev is not
// modified.
//
// On failure the error is logged and returned together with a nil job.
func (c *Client) Then(ctx context.Context, prev *Job, input string, opts ThenOptions) (*Job, error) {
	logger := c.logger.With("after", prev.ID, "name", prev.Name())

	id, err := prev.NumericID()
	if err != nil {
		logger.Error("Cannot chain job", "error", err)
		return nil, apperrors.Validation("prev", err.Error())
	}

	name := opts.Name
	if name == "" {
		name = prev.Name()
	}

	next := NewJob(name,
		WithLogDir(prev.LogDir()),
		WithScript(prev.Script),
		WithVerbose(prev.Verbose),
		WithOptions(prev.Options.Merge(opts.Options)),
	)
	next.Options[optDependency] = Text(fmt.Sprintf(`"done(%d)"`, id))

	err = c.submit(ctx, next, input, SubmitOptions{}, true)
	delete(next.Options, optDependency)
	if err != nil {
		logger.Error("Chained submission failed", "error", err)
		return nil, err
	}

	logger.Info("Chained job submitted", "jobId", next.ID, "next", next.Name())
	return next, nil
}
