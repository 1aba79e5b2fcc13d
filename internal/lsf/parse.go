package lsf

import (
	"strings"

	"bsub/internal/apperrors"
)

// Phrases and exit codes of the scheduler's text contract.
const (
	submittedPhrase  = "is submitted"
	terminatedPhrase = "is being terminated"

	// ExitJobNotFound is the exit status bsub and bkill use when a referenced
	// job (or dependency) does not exist.
	ExitJobNotFound = 255
)

// Job status tokens from the listing's STAT column.
const (
	StatusPending = "PEND"
	StatusRunning = "RUN"
	StatusDone    = "DONE"
	StatusExit    = "EXIT"
)

// emptyListingPhrases are printed instead of a table when nothing matches.
var emptyListingPhrases = []string{
	"No unfinished job found",
	"No job found",
}

// Record is one row of a job listing. Only ID and Status are relied upon;
// the remaining columns are best effort.
type Record struct {
	ID     string
	User   string
	Status string
	Queue  string
	Name   string
}

// Columns of the default listing: JOBID USER STAT QUEUE FROM_HOST EXEC_HOST
// JOB_NAME SUBMIT_TIME. EXEC_HOST is blank for pending jobs and SUBMIT_TIME
// spans three fields, so the name is located from the end of the row.
const (
	minNamedFields = 8
	nameFromEnd    = 4
)

// Finished reports whether the record is in a terminal state.
func (r Record) Finished() bool {
	return r.Status == StatusDone || r.Status == StatusExit
}

// classify maps a scheduler result to the error taxonomy. Exit status 255
// means a referenced job was not found regardless of output; any other
// non-zero status or a missing confirmation phrase is a generic failure.
func classify(op string, res *Result, phrase string) error {
	if res.ExitCode == ExitJobNotFound {
		return apperrors.JobNotFound(op, res.Command, strings.TrimSpace(res.Output), res.ExitCode)
	}
	if res.ExitCode != 0 || !strings.Contains(res.Output, phrase) {
		return apperrors.Submission(op, res.Command, strings.TrimSpace(res.Output), res.ExitCode)
	}
	return nil
}

// parseJobID extracts the text between the first '<' and the following '>'.
func parseJobID(output string) (string, bool) {
	_, rest, ok := strings.Cut(output, "<")
	if !ok {
		return "", false
	}
	id, _, ok := strings.Cut(rest, ">")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ParseListing parses bjobs output. The header line and any line whose first
// column is not a numeric id (such as "No unfinished job found") are skipped.
// Columns are whitespace delimited: id first, status third.
func ParseListing(output string) []Record {
	var records []Record
	for line := range strings.Lines(output) {
		fields := strings.Fields(line)
		if len(fields) == 0 || !isNumeric(fields[0]) {
			continue
		}

		r := Record{ID: fields[0]}
		if len(fields) > 1 {
			r.User = fields[1]
		}
		if len(fields) > 2 {
			r.Status = fields[2]
		}
		if len(fields) > 3 {
			r.Queue = fields[3]
		}
		if len(fields) >= minNamedFields {
			r.Name = fields[len(fields)-nameFromEnd]
		}
		records = append(records, r)
	}
	return records
}

func isEmptyListing(output string) bool {
	for _, phrase := range emptyListingPhrases {
		if strings.Contains(output, phrase) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
