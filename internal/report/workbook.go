package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"expensy/internal/core"
)

const sheetName = "Relatorio"

// Workbook renders the same content as Sheet into an XLSX file, with
// amounts stored as numbers.
func (a *Assembler) Workbook(snap core.Snapshot) (Export, error) {
	sum := snap.Summary()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return Export{}, fmt.Errorf("rename sheet: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return Export{}, fmt.Errorf("create style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return Export{}, fmt.Errorf("create style: %w", err)
	}

	set := func(cell string, v any) {
		if err == nil {
			err = f.SetCellValue(sheetName, cell, v)
		}
	}
	style := func(from, to string, id int) {
		if err == nil {
			err = f.SetCellStyle(sheetName, from, to, id)
		}
	}

	set("A1", "RELATORIO DE DESPESAS - "+strings.ToUpper(snap.Settings.UserName))
	style("A1", "A1", bold)
	set("A2", "Gerado em:")
	set("B2", generatedOn(snap))
	set("A4", "RESUMO FINANCEIRO")
	style("A4", "A4", bold)
	set("A5", "Adiantamento:")
	set("B5", sum.Advance.Reais())
	set("A6", "Gasto:")
	set("B6", sum.TotalSpent.Reais())
	set("A7", "Saldo:")
	set("B7", sum.Balance.Reais())
	style("B5", "B7", money)

	const headerRow = 9
	if err == nil {
		err = f.SetSheetRow(sheetName, fmt.Sprintf("A%d", headerRow), &[]any{"Data", "Categoria", "Descricao", "Valor (R$)"})
	}
	style(fmt.Sprintf("A%d", headerRow), fmt.Sprintf("D%d", headerRow), bold)
	for i, e := range snap.Expenses {
		row := headerRow + 1 + i
		if err == nil {
			err = f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row),
				&[]any{e.Date.Display(), e.Category.String(), e.Description, e.Amount.Reais()})
		}
	}
	if n := len(snap.Expenses); n > 0 {
		style(fmt.Sprintf("D%d", headerRow+1), fmt.Sprintf("D%d", headerRow+n), money)
	}
	if err != nil {
		return Export{}, fmt.Errorf("fill workbook: %w", err)
	}

	for col, width := range map[string]float64{"A": 22, "B": 18, "C": 40, "D": 14} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return Export{}, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Export{}, fmt.Errorf("write workbook: %w", err)
	}
	return Export{
		Filename:    Filename("Planilha", snap.Settings.UserName, "xlsx"),
		ContentType: ContentTypeXLSX,
		Data:        buf.Bytes(),
	}, nil
}
