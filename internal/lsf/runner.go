package lsf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// waitDelay bounds how long Run waits for output after ctx kills the shell,
// in case a grandchild still holds the pipe.
const waitDelay = 2 * time.Second

// Result is the outcome of one scheduler command.
type Result struct {
	Command  string
	Output   string // combined stdout and stderr
	ExitCode int
}

// Runner executes scheduler commands. A non-zero exit status is reported in
// Result.ExitCode; the error is reserved for commands that could not be run.
type Runner interface {
	Run(ctx context.Context, command string, stdin io.Reader) (*Result, error)
}

// ShellRunner runs commands through a shell so that the quoting produced by
// Options.FlagString and script redirects are interpreted as written.
type ShellRunner struct {
	Shell string // default: /bin/sh
}

// Run executes command with "<shell> -c" and captures its combined output.
func (r *ShellRunner) Run(ctx context.Context, command string, stdin io.Reader) (*Result, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command) // #nosec G204 -- the command line is the point
	cmd.Stdin = stdin
	cmd.WaitDelay = waitDelay

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()

	result := &Result{Command: command, Output: out.String()}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		result.ExitCode = 0
	case errors.As(runErr, &exitErr) && ctx.Err() == nil:
		result.ExitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		// Non-exit errors (e.g. shell not found) are returned directly.
		return nil, runErr
	}

	return result, nil
}
