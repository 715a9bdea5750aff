package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, storage and ledger state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, app *App) error {
		keys, err := app.StoredKeys(ctx)
		if err != nil {
			return err
		}
		c := app.Config

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if c.File != "" {
			fmt.Fprintf(tw, "Config file\t%s\n", c.File)
		}
		fmt.Fprintf(tw, "Backend\t%s\n", c.DataBackend)
		if c.DataBackend == "sqlite" {
			fmt.Fprintf(tw, "Database\t%s\n", c.SQLiteDBPath)
		}
		fmt.Fprintf(tw, "Extraction\t%s\n", enabled(c.ExtractionEnabled(), c.GeminiModel))
		fmt.Fprintf(tw, "Records\t%d\n", app.Ledger.Len())
		fmt.Fprintf(tw, "Stored keys\t%s\n", strings.Join(keys, ", "))
		return tw.Flush()
	})
}

func enabled(on bool, model string) string {
	if !on {
		return "disabled"
	}
	return "enabled (" + model + ")"
}
