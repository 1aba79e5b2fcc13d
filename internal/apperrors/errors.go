// Package apperrors provides structured errors for scheduler interactions.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation  = errors.New("validation error")
	ErrSubmission  = errors.New("submission failed")
	ErrJobNotFound = errors.New("job reference not found")
	ErrListing     = errors.New("job listing failed")
	ErrTimeout     = errors.New("timed out")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "script", "name")
	Op       string // Operation that failed (e.g., "submit", "kill")
	Command  string // Command line handed to the scheduler, if any
	Output   string // Captured scheduler output for diagnosis
	ExitCode int    // Scheduler exit status, -1 when the process never ran
	Cause    error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
		ExitCode: -1,
	}
}

// Submission creates a generic scheduler failure carrying the captured output.
func Submission(op, command, output string, exitCode int) error {
	return &Error{
		Sentinel: ErrSubmission,
		Message:  fmt.Sprintf("%s failed (exit %d): %s | %s", op, exitCode, command, output),
		Op:       op,
		Command:  command,
		Output:   output,
		ExitCode: exitCode,
	}
}

// JobNotFound creates an error for a job or dependency the scheduler no longer knows.
func JobNotFound(op, command, output string, exitCode int) error {
	return &Error{
		Sentinel: ErrJobNotFound,
		Message:  fmt.Sprintf("%s: job reference not found: %s", op, output),
		Op:       op,
		Command:  command,
		Output:   output,
		ExitCode: exitCode,
	}
}

// Listing creates an error for a job listing the scheduler could not produce.
func Listing(op, command, output string, exitCode int) error {
	return &Error{
		Sentinel: ErrListing,
		Message:  fmt.Sprintf("%s: job listing failed (exit %d): %s | %s", op, exitCode, command, output),
		Op:       op,
		Command:  command,
		Output:   output,
		ExitCode: exitCode,
	}
}

// Timeout creates an error for a wait that exceeded its budget. pending is
// the number of jobs still awaited, if known.
func Timeout(op string, pending int, cause error) error {
	msg := fmt.Sprintf("%s: timed out", op)
	if pending > 0 {
		msg = fmt.Sprintf("%s: timed out with %d job(s) pending", op, pending)
	}
	return &Error{
		Sentinel: ErrTimeout,
		Message:  msg,
		Op:       op,
		ExitCode: -1,
		Cause:    cause,
	}
}

// Exec wraps a failure to start the scheduler process at all.
func Exec(op, command string, cause error) error {
	return &Error{
		Sentinel: ErrSubmission,
		Message:  fmt.Sprintf("%s: %s: %v", op, command, cause),
		Op:       op,
		Command:  command,
		ExitCode: -1,
		Cause:    cause,
	}
}
