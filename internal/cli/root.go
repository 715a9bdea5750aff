package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"expensy/internal/log"
)

// NewRootCmd builds the expensy command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "expensy",
		Short: "Field expense ledger with receipt capture and reimbursement reports",
		Long: `expensy records field expenses against a monthly cash advance, keeps
receipt photos with each record, and produces the reimbursement report and
spreadsheet. Receipt photos can be read by Gemini to pre-fill amount,
category and date when GEMINI_API_KEY is set.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "TOML configuration file (overrides EXPENSY_CONFIG)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(),
		newAddCmd(),
		newListCmd(),
		newSummaryCmd(),
		newExportCmd(),
		newSettingsCmd(),
		newRemoveCmd(),
		newClearCmd(),
		newResetCmd(),
		newStatusCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

// withApp loads env, configuration and logger, opens the ledger, runs fn and
// closes everything. Logs go to stderr so command output stays parseable.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	LoadEnvFile()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("EXPENSY_CONFIG", path); err != nil {
			return err
		}
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	logger, err := SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentCLI)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := OpenApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
