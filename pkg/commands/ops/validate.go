package ops

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/config"
)

func newValidateCmd(cfg Config) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an operations file without executing it",
		Long: `Normalize the operations of a file and print their ids and dependencies.
Unknown dependencies and dependency cycles are reported. Nothing is sent.`,
		Example: `  batchctl validate -f ops.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ops, err := cfg.Deps.OperationsLoader(file)
			if err != nil {
				return err
			}

			resolved, err := batch.Validate(ops)
			writePlan(cmd.OutOrStdout(), resolved)
			if err != nil {
				return fmt.Errorf("invalid operations file: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d operations are valid\n", len(resolved))

			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Operations file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newConfigCmd(cfg Config) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after applying environment variables, with secrets masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := cfg.Deps.ConfigLoader(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			return config.Write(cmd.OutOrStdout(), appCfg.Redacted())
		},
	}

	addConfigFlag(cmd, &configPath)

	return cmd
}
