package ops

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/config"
)

var (
	runLong = `Execute a batch of operations read from a JSON, YAML or TOML file.

Verb operations (create, update, patch, delete, get) are sent to the remote service
configured with --base-url or remote.base_url. Operations run concurrently, bounded by
--max-concurrency, and wait for the operations they depend on.`

	runExample = `  # Run a batch against a local service
  batchctl run -f ops.yaml --base-url http://localhost:8080

  # Stop at the first failure and roll back, printing JSON
  batchctl run -f ops.yaml --fail-fast --rollback -o json`
)

type runFlags struct {
	file           string
	configPath     string
	output         string
	baseURL        string
	maxConcurrency int
	failFast       bool
	rollback       bool
	detectCycles   bool
	retries        uint
}

func newRunCmd(cfg Config) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Execute a batch of operations",
		Long:    runLong,
		Example: runExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(f.output); err != nil {
				return err
			}

			appCfg, err := cfg.Deps.ConfigLoader(f.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyRunFlags(cmd.Flags(), f, appCfg)

			lggr, err := cfg.logger(appCfg)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			ops, err := cfg.Deps.OperationsLoader(f.file)
			if err != nil {
				return err
			}

			requester, err := cfg.Deps.RequesterFactory(appCfg.Remote, lggr)
			if err != nil {
				return fmt.Errorf("failed to create remote client: %w", err)
			}

			summary, execErr := batch.Execute(cmd.Context(), lggr, nil, requester, ops, appCfg.Batch.Options()...)
			if err := writeSummary(cmd.OutOrStdout(), f.output, summary); err != nil {
				return err
			}
			if execErr != nil {
				return fmt.Errorf("batch rejected: %w", execErr)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d operations failed", summary.Failed, summary.Total)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Operations file (required)")
	addConfigFlag(cmd, &f.configPath)
	cmd.Flags().StringVarP(&f.output, "output", "o", outputTable, "Output format: table or json")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Base URL of the remote service")
	cmd.Flags().IntVar(&f.maxConcurrency, "max-concurrency", batch.DefaultMaxConcurrency, "Maximum operations dispatched at once")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "Reject the batch at the first failure")
	cmd.Flags().BoolVar(&f.rollback, "rollback", false, "Roll back succeeded operations when the batch is rejected")
	cmd.Flags().BoolVar(&f.detectCycles, "detect-cycles", false, "Fail before dispatching if dependencies form a cycle")
	cmd.Flags().UintVar(&f.retries, "retries", 1, "Attempts per operation, 1 disables retries")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// applyRunFlags overrides the loaded configuration with the flags that were set.
func applyRunFlags(flags *pflag.FlagSet, f runFlags, cfg *config.Config) {
	if flags.Changed("base-url") {
		cfg.Remote.BaseURL = f.baseURL
	}
	if flags.Changed("max-concurrency") {
		cfg.Batch.MaxConcurrency = f.maxConcurrency
	}
	if flags.Changed("fail-fast") {
		cfg.Batch.ContinueOnError = !f.failFast
	}
	if flags.Changed("rollback") {
		cfg.Batch.EnableRollback = f.rollback
	}
	if flags.Changed("detect-cycles") {
		cfg.Batch.DetectCycles = f.detectCycles
	}
	if flags.Changed("retries") {
		cfg.Batch.Retry.MaxAttempts = f.retries
	}
}
