package lsf

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"bsub/pkg/backoff"
)

// call is one recorded scheduler invocation.
type call struct {
	command string
	stdin   string
}

// fakeRunner records invocations and answers them with handle.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	handle func(n int, command string) (*Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, command string, stdin io.Reader) (*Result, error) {
	var in string
	if stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		in = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call{command: command, stdin: in})
	n := len(f.calls)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := f.handle(n, command)
	if res != nil {
		res.Command = command
	}
	return res, err
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([]string, len(f.calls))
	for i, c := range f.calls {
		cmds[i] = c.command
	}
	return cmds
}

func (f *fakeRunner) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, handle func(n int, command string) (*Result, error)) (*Client, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{handle: handle}
	client := NewClient(Config{
		Runner: runner,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Backoff: backoff.Config{
			Initial: time.Millisecond,
			Step:    time.Millisecond,
			Max:     5 * time.Millisecond,
		},
	})
	return client, runner
}

// reply builds a Result.
func reply(exitCode int, lines ...string) *Result {
	return &Result{Output: strings.Join(lines, "\n") + "\n", ExitCode: exitCode}
}

const listingHeader = "JOBID   USER    STAT  QUEUE      FROM_HOST   EXEC_HOST   JOB_NAME   SUBMIT_TIME"

// listing renders bjobs output for id/status pairs.
func listing(pairs ...string) *Result {
	lines := []string{listingHeader}
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, pairs[i]+"  alice  "+pairs[i+1]+"  normal  login1  node7  job  Oct 17 10:00")
	}
	return reply(0, lines...)
}

// submitted is bsub's confirmation for id.
func submitted(id string) *Result {
	return reply(0, "Job <"+id+"> is submitted to default queue <normal>.")
}
