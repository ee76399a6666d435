package ops

import (
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/batchops/config"
	"github.com/smartcontractkit/batchops/pkg/logger"
)

const defaultConfigPath = "batchctl.yaml"

// Config holds the configuration of the batch commands.
type Config struct {
	// Logger is used by the executor and the remote client. When nil, a logger is built from
	// the log section of the loaded configuration.
	Logger logger.Logger

	// Deps are the injectable dependencies. Optional.
	Deps *Deps
}

// deps returns the dependencies with production defaults applied.
func (c *Config) deps() *Deps {
	if c.Deps == nil {
		c.Deps = &Deps{}
	}
	c.Deps.applyDefaults()

	return c.Deps
}

// logger returns the configured logger, or one built from cfg.
func (c *Config) logger(cfg *config.Config) (logger.Logger, error) {
	if c.Logger != nil {
		return c.Logger, nil
	}

	return cfg.Log.NewLogger()
}

// NewCommands creates the run, validate and config commands.
//
// Usage:
//
//	rootCmd.AddCommand(ops.NewCommands(ops.Config{Logger: lggr})...)
func NewCommands(cfg Config) []*cobra.Command {
	// Apply defaults for optional dependencies
	cfg.deps()

	return []*cobra.Command{
		newRunCmd(cfg),
		newValidateCmd(cfg),
		newConfigCmd(cfg),
	}
}

// addConfigFlag registers the --config flag shared by the commands that load configuration.
func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", defaultConfigPath,
		"Path to the config file (yaml, toml or json). Environment variables override it.")
}
