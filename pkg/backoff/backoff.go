// Package backoff provides linear backoff calculation.
package backoff

import (
	"time"
)

// Config for linear backoff. Zero values use defaults.
type Config struct {
	Initial time.Duration // default: 1s
	Step    time.Duration // default: 250ms
	Max     time.Duration // default: 100s
}

// Linear calculates linear backoff for a given attempt.
// Attempt 1 returns initial, attempt 2 returns initial+step, etc.
func Linear(attempt int, cfg *Config) time.Duration {
	initial := time.Second
	step := 250 * time.Millisecond
	maxBackoff := 100 * time.Second
	if cfg != nil {
		if cfg.Initial > 0 {
			initial = cfg.Initial
		}
		if cfg.Step > 0 {
			step = cfg.Step
		}
		if cfg.Max > 0 {
			maxBackoff = cfg.Max
		}
	}

	if attempt < 1 {
		return min(initial, maxBackoff)
	}
	backoff := initial + time.Duration(attempt-1)*step
	if backoff > maxBackoff || backoff < initial {
		backoff = maxBackoff
	}
	return backoff
}
