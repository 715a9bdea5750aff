package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"expensy/internal/capture"
	"expensy/internal/core"
)

// extractionGrace is added to the configured extraction timeout when add
// waits for suggestions.
const extractionGrace = 5 * time.Second

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Long: `Record an expense. With --receipt the photo is attached to the record and,
when extraction is configured, read for amount, category and date. Flags
given explicitly take precedence over what the receipt suggests.`,
		Example: `  expensy add --amount 45,90 --category fuel --description "Posto Ipiranga"
  expensy add --receipt nota.jpg`,
		Args: cobra.NoArgs,
		RunE: runAdd,
	}
	cmd.Flags().String("amount", "", "Amount in reais (12,34 or 12.34)")
	cmd.Flags().String("category", "", "Category label or English name (fuel, food, parking...)")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().String("description", "", "Free-text description")
	cmd.Flags().Bool("personal", false, "Paid with personal money")
	cmd.Flags().String("receipt", "", "Path to a receipt photo")
	return cmd
}

// addFlags returns the draft edit for the flags set on cmd.
func addFlags(cmd *cobra.Command) (func(*core.Draft), error) {
	flags := cmd.Flags()
	var edits []func(*core.Draft)

	if flags.Changed("amount") {
		s, _ := flags.GetString("amount")
		m, err := core.ParseMoney(s)
		if err != nil {
			return nil, &core.ValidationError{Field: "amount", Err: err}
		}
		edits = append(edits, func(d *core.Draft) { d.Amount = m })
	}
	if flags.Changed("category") {
		s, _ := flags.GetString("category")
		c, ok := core.ParseCategory(s)
		if !ok {
			return nil, &core.ValidationError{Field: "category", Err: fmt.Errorf("%w: %q", core.ErrInvalidCategory, s)}
		}
		edits = append(edits, func(d *core.Draft) { d.Category = c })
	}
	if flags.Changed("date") {
		s, _ := flags.GetString("date")
		dt, err := core.ParseDate(s)
		if err != nil {
			return nil, &core.ValidationError{Field: "date", Err: err}
		}
		edits = append(edits, func(d *core.Draft) { d.Date = dt })
	}
	if flags.Changed("description") {
		s, _ := flags.GetString("description")
		edits = append(edits, func(d *core.Draft) { d.Description = s })
	}
	if flags.Changed("personal") {
		b, _ := flags.GetBool("personal")
		edits = append(edits, func(d *core.Draft) { d.IsPersonalMoney = b })
	}

	return func(d *core.Draft) {
		for _, e := range edits {
			e(d)
		}
	}, nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	edit, err := addFlags(cmd)
	if err != nil {
		return err
	}
	receipt, _ := cmd.Flags().GetString("receipt")

	return withApp(cmd, func(ctx context.Context, app *App) error {
		extractor, err := newExtractor(ctx, app)
		if err != nil {
			return err
		}
		captures := capture.NewManager(app.Ledger, extractor, app.Logger)
		defer captures.Close()

		sess := captures.Open()
		if receipt != "" {
			raw, err := os.ReadFile(receipt)
			if err != nil {
				return fmt.Errorf("read receipt: %w", err)
			}
			if err := captures.AttachReceipt(ctx, sess, raw); err != nil {
				return err
			}
			waitCtx, cancel := context.WithTimeout(ctx, app.Config.ExtractionTimeout+extractionGrace)
			err = sess.Wait(waitCtx)
			cancel()
			if err != nil {
				app.Logger.Warn("receipt extraction did not finish", "error", err)
			}
		}
		if err := sess.Edit(edit); err != nil {
			return err
		}

		suggested := sess.Draft().Suggested
		e, err := captures.Submit(ctx, sess)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recorded %s  %s  %s  %s\n", e.ID, e.Date.Display(), e.Category, e.Amount.BRL())
		if names := suggested.Names(); len(names) > 0 {
			fmt.Fprintf(out, "Read from receipt: %v\n", names)
		}
		return nil
	})
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded expenses, newest first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.Flags().Int("limit", 0, "Show at most this many records (0 for all)")
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

type listItem struct {
	ID              string     `json:"id"`
	Date            core.Date  `json:"date"`
	Amount          core.Money `json:"amount"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	IsPersonalMoney bool       `json:"isPersonalMoney"`
	HasReceipt      bool       `json:"hasReceipt"`
}

func runList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(_ context.Context, app *App) error {
		n := app.Ledger.Len()
		if limit > 0 {
			n = limit
		}
		items := []listItem{}
		for e := range app.Ledger.RecentActivity(n) {
			items = append(items, listItem{
				ID:              e.ID,
				Date:            e.Date,
				Amount:          e.Amount,
				Category:        e.Category.String(),
				Description:     e.Description,
				IsPersonalMoney: e.IsPersonalMoney,
				HasReceipt:      e.HasReceipt(),
			})
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), items)
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No expenses recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tPERSONAL\tRECEIPT\tDESCRIPTION")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, it.Date.Display(), it.Category, it.Amount.BRL(),
				yesNo(it.IsPersonalMoney), yesNo(it.HasReceipt), it.Description)
		}
		return tw.Flush()
	})
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals, balance and spend per category",
		Args:  cobra.NoArgs,
		RunE:  runSummary,
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

type summaryOutput struct {
	Count         int              `json:"count"`
	TotalSpent    core.Money       `json:"totalSpent"`
	Advance       core.Money       `json:"monthlyAdvance"`
	Balance       core.Money       `json:"balance"`
	OverLimit     bool             `json:"overLimit"`
	PersonalMoney core.Money       `json:"personalMoney"`
	ByCategory    []categoryOutput `json:"byCategory"`
}

type categoryOutput struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
	Percent  float64    `json:"percent"`
}

func runSummary(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(_ context.Context, app *App) error {
		s := app.Ledger.Totals()
		out := summaryOutput{
			Count:         s.Count,
			TotalSpent:    s.TotalSpent,
			Advance:       s.Advance,
			Balance:       s.Balance,
			OverLimit:     s.OverLimit(),
			PersonalMoney: s.PersonalMoney,
			ByCategory:    []categoryOutput{},
		}
		for _, ca := range s.ByCategory {
			out.ByCategory = append(out.ByCategory, categoryOutput{
				Category: ca.Category.String(),
				Amount:   ca.Amount,
				Percent:  ca.Percent,
			})
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), out)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Records\t%d\n", out.Count)
		fmt.Fprintf(tw, "Advance\t%s\n", out.Advance.BRL())
		fmt.Fprintf(tw, "Spent\t%s\n", out.TotalSpent.BRL())
		fmt.Fprintf(tw, "Balance\t%s\n", out.Balance.BRL())
		fmt.Fprintf(tw, "Personal money\t%s\n", out.PersonalMoney.BRL())
		if out.OverLimit {
			fmt.Fprintln(tw, "Status\tOVER LIMIT")
		}
		if len(out.ByCategory) > 0 {
			fmt.Fprintln(tw, "\t")
			for _, ca := range out.ByCategory {
				fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", ca.Category, ca.Amount.BRL(), ca.Percent)
			}
		}
		return tw.Flush()
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
