// Package main provides batchctl, a CLI to validate and execute batches of operations
// against a remote JSON API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/batchops/pkg/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "batchctl",
		Short:         "Execute batches of dependent operations concurrently",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// The logger is built by each command from the log section of its configuration.
	root.AddCommand(commands.New(nil).Ops()...)

	return root
}
