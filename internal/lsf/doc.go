// Package lsf drives the LSF command line (bsub, bjobs, bkill) on behalf of a
// caller.
//
// A Job is an in-process handle for one unit of scheduler work. It renders its
// options into a bsub flag string, and its name determines the -J, -o and -e
// flags. A Client submits Jobs, chains them with -w dependency clauses, polls
// the scheduler until a set of job ids has finished, and terminates jobs.
//
// The scheduler is treated as an opaque collaborator: every interaction is a
// subprocess invocation whose combined output is scraped for a small number of
// known phrases. All operations block the calling goroutine; cancellation and
// timeouts are expressed through context.Context.
package lsf
