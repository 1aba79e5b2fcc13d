package lsf

import (
	"context"
	"errors"
	"testing"

	"bsub/internal/apperrors"
)

func TestKill(t *testing.T) {
	t.Parallel()

	client, runner := newTestClient(t, func(int, string) (*Result, error) {
		return reply(0, "Job <1> is being terminated"), nil
	})

	if err := client.Kill(context.Background(), "1", " 2 ", "1", "align", "sweep[1-4]", ""); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	want := []string{"bkill 1 2", "bkill -J align", `bkill -J "sweep[1-4]"`}
	got := runner.commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKill_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		res     *Result
		wantErr error
	}{
		{"no such job", reply(255, "Job <9>: No matching job found"), apperrors.ErrJobNotFound},
		{"already finished", reply(0, "Job <9>: Job has already finished"), apperrors.ErrSubmission},
		{"permission", reply(1, "Job <9>: User permission denied"), apperrors.ErrSubmission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, _ := newTestClient(t, func(int, string) (*Result, error) {
				return tt.res, nil
			})
			err := client.Kill(context.Background(), "9")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Kill() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKill_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	client, runner := newTestClient(t, func(int, string) (*Result, error) {
		return reply(255, "No matching job found"), nil
	})

	if err := client.Kill(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error")
	}
	if n := len(runner.commands()); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestKill_NoTargets(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(int, string) (*Result, error) {
		return reply(0, "is being terminated"), nil
	})

	if err := client.Kill(context.Background(), " ", ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Kill() = %v, want ErrValidation", err)
	}
}
