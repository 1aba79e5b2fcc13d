package apperrors

import (
	"context"
	"errors"
)

// Process exit codes used by the CLI.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitJobMissing = 3
	ExitTimeout    = 124
	ExitCancelled  = 130
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrValidation):
		return ExitUsage
	case errors.Is(err, ErrJobNotFound):
		return ExitJobMissing
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	default:
		return ExitFailure
	}
}
