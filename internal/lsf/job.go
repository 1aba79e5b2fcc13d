package lsf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Option names bound to the job name, and the dependency option set by Then.
const (
	optName       = "J"
	optStdout     = "o"
	optStderr     = "e"
	optDependency = "w"
)

// Scheduler substitution tokens, expanded by LSF at run time.
const (
	jobIDToken      = "%J"
	arrayIndexToken = "%I"
)

// DefaultLogDir is the directory output files are placed in when it exists
// and is writable.
const DefaultLogDir = "logs"

// Job is a handle for one submitted or to-be-submitted unit of work.
//
// ID is empty until a submission succeeds. Script, when set, is the single
// positional input: a script file fed to bsub on stdin.
type Job struct {
	name    string
	logDir  string
	Script  string
	Options Options
	ID      string
	Verbose bool
}

// JobOption configures a Job created by NewJob.
type JobOption func(*Job)

// WithScript sets the script redirected to bsub's stdin on submission.
func WithScript(path string) JobOption {
	return func(j *Job) {
		j.Script = path
	}
}

// WithOptions adds pass-through bsub options. Later options win.
func WithOptions(opts Options) JobOption {
	return func(j *Job) {
		j.Options = j.Options.Merge(opts)
	}
}

// WithVerbose logs the full submission command at info level.
func WithVerbose(verbose bool) JobOption {
	return func(j *Job) {
		j.Verbose = verbose
	}
}

// WithLogDir overrides the directory checked for output files (default: logs).
// An empty dir disables the rewrite.
func WithLogDir(dir string) JobOption {
	return func(j *Job) {
		j.logDir = dir
	}
}

// NewJob creates a Job named name. The name is bound after all options are
// applied, so -J, -o and -e always reflect it.
func NewJob(name string, opts ...JobOption) *Job {
	j := &Job{
		logDir:  DefaultLogDir,
		Options: make(Options),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.SetName(name)
	return j
}

// Name returns the job name.
func (j *Job) Name() string {
	return j.name
}

// SetName sets the job name and derives the -o and -e paths from it:
// name.%J.out and name.%J.err, with .%I inserted for array jobs (names
// containing '['). If the log directory exists and is writable at this
// point, both paths are placed inside it.
func (j *Job) SetName(name string) {
	if j.Options == nil {
		j.Options = make(Options)
	}

	base := name + "." + jobIDToken
	if strings.Contains(name, "[") {
		base += "." + arrayIndexToken
	}
	stdout := base + ".out"
	stderr := base + ".err"

	if logDirWritable(j.logDir) {
		stdout = filepath.Join(j.logDir, stdout)
		stderr = filepath.Join(j.logDir, stderr)
	}

	j.Options[optName] = Text(name)
	j.Options[optStdout] = Text(stdout)
	j.Options[optStderr] = Text(stderr)
	j.name = name
}

// LogDir returns the directory consulted by SetName.
func (j *Job) LogDir() string {
	return j.logDir
}

// Submitted reports whether the job has a scheduler id.
func (j *Job) Submitted() bool {
	return j.ID != ""
}

// NumericID returns the scheduler id as an integer, as required by
// dependency expressions.
func (j *Job) NumericID() (int, error) {
	if j.ID == "" {
		return 0, fmt.Errorf("job %q has not been submitted", j.name)
	}
	n, err := strconv.Atoi(j.ID)
	if err != nil {
		return 0, fmt.Errorf("job %q has non-numeric id %q", j.name, j.ID)
	}
	return n, nil
}

// Command returns the shell command that submits the job with submitBin.
// The script redirect is included only when withScript is set and the job
// has a script.
func (j *Job) Command(submitBin string, withScript bool) string {
	cmd := submitBin
	if flags := j.Options.FlagString(); flags != "" {
		cmd += " " + flags
	}
	if withScript && j.Script != "" {
		cmd += " < " + j.Script
	}
	return cmd
}

// String returns the submission command using the default bsub binary.
func (j *Job) String() string {
	return j.Command("bsub", true)
}

func logDirWritable(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	return unix.Access(dir, unix.W_OK) == nil
}
