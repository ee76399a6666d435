// Package commands provides modular CLI command packages for batchctl.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory (recommended for most use cases):
//
//	commands := commands.New(lggr)
//	app.AddCommand(commands.Ops()...)
//
// 2. Via direct package imports (for advanced DI/testing):
//
//	import "github.com/smartcontractkit/batchops/pkg/commands/ops"
//
//	app.AddCommand(ops.NewCommands(ops.Config{
//	    Logger: lggr,
//	    Deps:   &ops.Deps{...},  // inject mocks for testing
//	})...)
package commands

import (
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/batchops/pkg/commands/ops"
	"github.com/smartcontractkit/batchops/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
// This allows setting the logger once and reusing it across all commands.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
// The logger will be shared across all commands created by this factory. A nil logger lets
// each command build one from the log section of its configuration.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// Ops creates the run, validate and config commands.
//
// Usage:
//
//	cmds := commands.New(lggr)
//	rootCmd.AddCommand(cmds.Ops()...)
func (c *Commands) Ops() []*cobra.Command {
	return ops.NewCommands(ops.Config{
		Logger: c.lggr,
	})
}
