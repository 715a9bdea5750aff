package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"expensy/internal/core"
	"expensy/internal/imaging"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the name, monthly advance and PIX QR code",
		Example: `  expensy settings --name "Ana Souza" --advance 1500
  expensy settings --pix qrcode.png`,
		Args: cobra.NoArgs,
		RunE: runSettings,
	}
	cmd.Flags().String("name", "", "Name printed on reports")
	cmd.Flags().String("advance", "", "Monthly cash advance in reais")
	cmd.Flags().String("pix", "", "Path to the PIX QR code image")
	cmd.Flags().Bool("clear-pix", false, "Remove the PIX QR code")
	cmd.MarkFlagsMutuallyExclusive("pix", "clear-pix")
	return cmd
}

// parseAdvance accepts zero, unlike record amounts.
func parseAdvance(s string) (core.Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: "monthlyAdvance", Err: fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)}
	}
	if d.IsNegative() {
		return core.Money{}, &core.ValidationError{Field: "monthlyAdvance", Err: core.ErrNegativeAdvance}
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: "monthlyAdvance", Err: err}
	}
	return m, nil
}

func runSettings(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	return withApp(cmd, func(ctx context.Context, app *App) error {
		s := app.Ledger.Settings()
		changed := false

		if flags.Changed("name") {
			s.UserName, _ = flags.GetString("name")
			changed = true
		}
		if flags.Changed("advance") {
			raw, _ := flags.GetString("advance")
			m, err := parseAdvance(raw)
			if err != nil {
				return err
			}
			s.MonthlyAdvance = m
			changed = true
		}
		if path, _ := flags.GetString("pix"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read pix image: %w", err)
			}
			img, err := imaging.NormalizeBytes(raw, imaging.QRCodeProfile)
			if err != nil {
				return err
			}
			s.PixQRCode = &img
			changed = true
		}
		if drop, _ := flags.GetBool("clear-pix"); drop {
			s.PixQRCode = nil
			changed = true
		}

		if changed {
			if err := app.Ledger.UpdateSettings(ctx, s); err != nil {
				return err
			}
			s = app.Ledger.Settings()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:     %s\n", s.UserName)
		fmt.Fprintf(out, "Advance:  %s\n", s.MonthlyAdvance.BRL())
		pix := "not set"
		if s.PixQRCode != nil {
			pix = "set"
		}
		fmt.Fprintf(out, "PIX:      %s\n", pix)
		return nil
	})
}
