// Command maintenance runs data maintenance routines against the store:
// index management, backup and restore, retention cleanup and health checks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	root, release := newRootCmd(connectService)
	err := root.ExecuteContext(ctx)
	release()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
