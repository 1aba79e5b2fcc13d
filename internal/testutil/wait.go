// Package testutil provides helpers for testing calls that block while they
// poll an external system.
package testutil

import (
	"sync/atomic"
	"testing"
	"time"
)

// PollOptions configures Eventually.
type PollOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// PollOption is a functional option for Eventually.
type PollOption func(*PollOptions)

// WithTimeout sets the maximum wait time (default: 5s).
func WithTimeout(d time.Duration) PollOption {
	return func(o *PollOptions) {
		o.Timeout = d
	}
}

// WithInterval sets the polling interval (default: 5ms).
func WithInterval(d time.Duration) PollOption {
	return func(o *PollOptions) {
		o.Interval = d
	}
}

func defaultOptions() PollOptions {
	return PollOptions{
		Timeout:  5 * time.Second,
		Interval: 5 * time.Millisecond,
	}
}

// Eventually polls until condition returns true or the timeout is reached.
// The condition is always evaluated at least once.
func Eventually(tb testing.TB, condition func() bool, opts ...PollOption) bool {
	tb.Helper()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	deadline := time.Now().Add(o.Timeout)
	for {
		if condition() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(o.Interval)
	}
}

// MustReach fails the test unless counter reaches target in time.
func MustReach(tb testing.TB, counter *atomic.Int64, target int64, opts ...PollOption) {
	tb.Helper()
	if !Eventually(tb, func() bool { return counter.Load() >= target }, opts...) {
		tb.Fatalf("timed out waiting for counter to reach %d (current: %d)", target, counter.Load())
	}
}

// Go runs fn in a goroutine and returns a channel that receives its result.
func Go[T any](fn func() T) <-chan T {
	ch := make(chan T, 1)
	go func() {
		ch <- fn()
	}()
	return ch
}

// MustReceive returns the next value from ch or fails the test after timeout.
func MustReceive[T any](tb testing.TB, ch <-chan T, timeout time.Duration) T {
	tb.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		tb.Fatalf("nothing received within %v", timeout)
		var zero T
		return zero
	}
}

// MustBlock fails the test if ch yields a value within d.
func MustBlock[T any](tb testing.TB, ch <-chan T, d time.Duration) {
	tb.Helper()
	select {
	case v := <-ch:
		tb.Fatalf("expected call to block, got %v", v)
	case <-time.After(d):
	}
}
