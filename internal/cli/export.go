package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"expensy/internal/log"
	"expensy/internal/report"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "export [html|csv|xlsx]...",
		Short:     "Write the reimbursement report and spreadsheets",
		Long:      "Write the selected exports (all three by default) into --dir and print their paths.",
		ValidArgs: report.Formats(),
		Args:      cobra.OnlyValidArgs,
		RunE:      runExport,
	}
	cmd.Flags().String("dir", "", "Output directory (default EXPORT_DIR)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	formats := args
	if len(formats) == 0 {
		formats = report.Formats()
	}
	return withApp(cmd, func(_ context.Context, app *App) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = app.Config.ExportDir
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}

		reports, err := report.New()
		if err != nil {
			return err
		}
		snap := app.Ledger.Snapshot()
		for _, f := range formats {
			exp, err := reports.Render(f, snap)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, exp.Filename)
			if err := os.WriteFile(path, exp.Data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			app.Logger.Info("export written",
				log.FieldOperation, log.OpExport,
				"format", f,
				"path", path,
				"bytes", len(exp.Data),
			)
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	})
}
