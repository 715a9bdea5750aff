package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"expensy/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sheet renders the semicolon-separated spreadsheet: a summary block, then
// one row per record. Amounts use a decimal comma.
func (a *Assembler) Sheet(snap core.Snapshot) (Export, error) {
	sum := snap.Summary()

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	rows := [][]string{
		{"RELATORIO DE DESPESAS - " + strings.ToUpper(snap.Settings.UserName)},
		{"Gerado em:", generatedOn(snap)},
		{},
		{"RESUMO FINANCEIRO"},
		{"Adiantamento:", sum.Advance.BRL()},
		{"Gasto:", sum.TotalSpent.BRL()},
		{"Saldo:", sum.Balance.BRL()},
		{},
		{"Data", "Categoria", "Descricao", "Valor (R$)"},
	}
	for _, e := range snap.Expenses {
		rows = append(rows, []string{e.Date.Display(), e.Category.String(), e.Description, e.Amount.Plain()})
	}
	if err := w.WriteAll(rows); err != nil {
		return Export{}, fmt.Errorf("write csv: %w", err)
	}

	return Export{
		Filename:    Filename("Planilha", snap.Settings.UserName, "csv"),
		ContentType: ContentTypeCSV,
		Data:        buf.Bytes(),
	}, nil
}
