// Command bsub submits, chains, waits for and terminates LSF batch jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bsub/internal/apperrors"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		os.Interrupt,
	)
	defer cancel()

	c := newCLI(nil)
	defer c.close()

	return apperrors.ExitCode(c.rootCmd().ExecuteContext(ctx))
}
