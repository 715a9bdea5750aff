package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"expensy/internal/core"
	"expensy/internal/ledger"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestructive(cmd, func(l *ledger.Ledger) (core.PendingAction, error) {
				if _, ok := l.Get(args[0]); !ok {
					return core.PendingAction{}, fmt.Errorf("expense %s not found", args[0])
				}
				return l.RequestRemove(args[0]), nil
			})
		},
	}
	addYesFlag(cmd)
	return cmd
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense and photo, keeping settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDestructive(cmd, func(l *ledger.Ledger) (core.PendingAction, error) {
				return l.RequestClear(), nil
			})
		},
	}
	addYesFlag(cmd)
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every expense, photo and setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDestructive(cmd, func(l *ledger.Ledger) (core.PendingAction, error) {
				return l.RequestReset(), nil
			})
		},
	}
	addYesFlag(cmd)
	return cmd
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

// runDestructive stages the action, asks for confirmation unless --yes and
// resolves it either way.
func runDestructive(cmd *cobra.Command, stage func(*ledger.Ledger) (core.PendingAction, error)) error {
	yes, _ := cmd.Flags().GetBool("yes")
	return withApp(cmd, func(ctx context.Context, app *App) error {
		a, err := stage(app.Ledger)
		if err != nil {
			return err
		}
		confirmed := yes || confirm(cmd.InOrStdin(), cmd.OutOrStdout(), a.Prompt)
		if _, err := app.Ledger.Resolve(ctx, a.ID, confirmed); err != nil {
			return err
		}
		if confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Done.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		}
		return nil
	})
}

// confirm shows p and reads one answer line. Anything but yes cancels.
func confirm(in io.Reader, out io.Writer, p core.Prompt) bool {
	fmt.Fprintf(out, "%s\n%s\n%s [s/N]: ", p.Title, p.Message, p.ConfirmLabel)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}
