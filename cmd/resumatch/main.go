package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resumatch/internal/cli"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// cobra reports the error on stderr
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
