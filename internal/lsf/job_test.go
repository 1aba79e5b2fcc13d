package lsf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewJob_NameBinding(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name       string
		jobName    string
		wantStdout string
		wantStderr string
	}{
		{
			name:       "plain job",
			jobName:    "align",
			wantStdout: "align.%J.out",
			wantStderr: "align.%J.err",
		},
		{
			name:       "array job adds index token",
			jobName:    "sweep[1-10]",
			wantStdout: "sweep[1-10].%J.%I.out",
			wantStderr: "sweep[1-10].%J.%I.err",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewJob(tt.jobName, WithLogDir(missing))

			if job.Name() != tt.jobName {
				t.Errorf("Name() = %q, want %q", job.Name(), tt.jobName)
			}
			if got := job.Options[optName].text; got != tt.jobName {
				t.Errorf("-J = %q, want %q", got, tt.jobName)
			}
			if got := job.Options[optStdout].text; got != tt.wantStdout {
				t.Errorf("-o = %q, want %q", got, tt.wantStdout)
			}
			if got := job.Options[optStderr].text; got != tt.wantStderr {
				t.Errorf("-e = %q, want %q", got, tt.wantStderr)
			}
		})
	}
}

func TestNewJob_WritableLogDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	job := NewJob("align", WithLogDir(dir))

	if got, want := job.Options[optStdout].text, filepath.Join(dir, "align.%J.out"); got != want {
		t.Errorf("-o = %q, want %q", got, want)
	}
	if got, want := job.Options[optStderr].text, filepath.Join(dir, "align.%J.err"); got != want {
		t.Errorf("-e = %q, want %q", got, want)
	}
}

func TestNewJob_LogDirIsFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "logs")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	job := NewJob("align", WithLogDir(file))
	if got := job.Options[optStdout].text; got != "align.%J.out" {
		t.Errorf("-o = %q, want bare file name", got)
	}
}

func TestNewJob_ReadOnlyLogDir(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}

	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o500); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	job := NewJob("align", WithLogDir(dir))
	if got := job.Options[optStdout].text; got != "align.%J.out" {
		t.Errorf("-o = %q, want bare file name", got)
	}
}

func TestNewJob_NameWinsOverOptions(t *testing.T) {
	t.Parallel()

	job := NewJob("real",
		WithLogDir(""),
		WithOptions(Options{"J": Text("other"), "o": Text("x.out"), "q": Text("long")}),
	)

	if got := job.Options[optName].text; got != "real" {
		t.Errorf("-J = %q, want real", got)
	}
	if got := job.Options[optStdout].text; got != "real.%J.out" {
		t.Errorf("-o = %q", got)
	}
	if got := job.Options["q"].text; got != "long" {
		t.Errorf("-q = %q, want long", got)
	}
}

func TestJob_SetNameRebinds(t *testing.T) {
	t.Parallel()

	job := NewJob("first", WithLogDir(""))
	job.SetName("second")

	if job.Name() != "second" {
		t.Errorf("Name() = %q", job.Name())
	}
	if got := job.Options[optStderr].text; got != "second.%J.err" {
		t.Errorf("-e = %q", got)
	}
}

func TestJob_Command(t *testing.T) {
	t.Parallel()

	job := NewJob("s", WithLogDir(""), WithScript("run.sh"))

	if got, want := job.Command("bsub", true), "bsub -J s -e s.%J.err -o s.%J.out < run.sh"; got != want {
		t.Errorf("Command(true) = %q, want %q", got, want)
	}
	if got, want := job.Command("/opt/lsf/bin/bsub", false), "/opt/lsf/bin/bsub -J s -e s.%J.err -o s.%J.out"; got != want {
		t.Errorf("Command(false) = %q, want %q", got, want)
	}
	if got := job.String(); got != job.Command("bsub", true) {
		t.Errorf("String() = %q", got)
	}

	array := NewJob("a[1-4]", WithLogDir(""))
	if got, want := array.String(), `bsub -J "a[1-4]" -e "a[1-4].%J.%I.err" -o "a[1-4].%J.%I.out"`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestJob_NumericID(t *testing.T) {
	t.Parallel()

	job := NewJob("x", WithLogDir(""))
	if job.Submitted() {
		t.Error("new job should not be submitted")
	}
	if _, err := job.NumericID(); err == nil {
		t.Error("Expected error for unsubmitted job")
	}

	job.ID = "abc"
	if _, err := job.NumericID(); err == nil {
		t.Error("Expected error for non-numeric id")
	}

	job.ID = "4242"
	n, err := job.NumericID()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 4242 {
		t.Errorf("NumericID() = %d, want 4242", n)
	}
}
