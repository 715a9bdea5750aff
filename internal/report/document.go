package report

import (
	"bytes"
	"fmt"
	"html/template"

	"expensy/internal/core"
)

type documentData struct {
	UserName    string
	GeneratedAt string
	TotalSpent  string
	Advance     string
	Balance     string
	OverLimit   bool
	PixQRCode   template.URL
	Rows        []documentRow
	Attachments []attachment
}

type documentRow struct {
	Date, Category, Description, Amount string
}

type attachment struct {
	Index    int
	Category string
	Amount   string
	Image    template.URL
}

// Document renders the self-contained HTML report. Images are embedded as
// data URIs so the file can be opened offline.
func (a *Assembler) Document(snap core.Snapshot) (Export, error) {
	sum := snap.Summary()
	data := documentData{
		UserName:    snap.Settings.UserName,
		GeneratedAt: generatedOn(snap),
		TotalSpent:  sum.TotalSpent.BRL(),
		Advance:     sum.Advance.BRL(),
		Balance:     sum.Balance.BRL(),
		OverLimit:   sum.OverLimit(),
	}
	if qr := snap.Settings.PixQRCode; qr != nil && len(qr.Data) > 0 {
		// data: URIs we produced ourselves; html/template would otherwise
		// replace them with #ZgotmplZ.
		data.PixQRCode = template.URL(qr.DataURI())
	}
	for _, e := range snap.Expenses {
		data.Rows = append(data.Rows, documentRow{
			Date:        e.Date.Display(),
			Category:    e.Category.String(),
			Description: e.Description,
			Amount:      e.Amount.BRL(),
		})
	}
	for i, e := range snap.WithReceipts() {
		data.Attachments = append(data.Attachments, attachment{
			Index:    i + 1,
			Category: e.Category.String(),
			Amount:   e.Amount.BRL(),
			Image:    template.URL(e.ReceiptImage.DataURI()),
		})
	}

	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, data); err != nil {
		return Export{}, fmt.Errorf("render report: %w", err)
	}
	return Export{
		Filename:    Filename("Relatorio", snap.Settings.UserName, "html"),
		ContentType: ContentTypeHTML,
		Data:        buf.Bytes(),
	}, nil
}
