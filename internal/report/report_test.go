package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"expensy/internal/core"
)

func testSnapshot() core.Snapshot {
	receipt := &core.Image{MIMEType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
	return core.Snapshot{
		Expenses: []core.Expense{
			{
				ID: "b", Date: core.NewDate(2024, 5, 2), Amount: core.Money{Cents: 5000},
				Category: core.CategoryFood, Description: "almoço; equipe", ReceiptImage: receipt,
			},
			{
				ID: "a", Date: core.NewDate(2024, 5, 1), Amount: core.Money{Cents: 45050},
				Category: core.CategoryFuel, Description: "posto",
			},
		},
		Settings: core.Settings{
			UserName:       "Ana  Souza",
			MonthlyAdvance: core.Money{Cents: 50000},
			PixQRCode:      &core.Image{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}},
		},
		GeneratedAt: time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC),
	}
}

func newAssembler(t *testing.T) *Assembler {
	t.Helper()
	a, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestFilename(t *testing.T) {
	tests := []struct {
		prefix, name, ext, want string
	}{
		{"Relatorio", "Ana Souza", "html", "Relatorio_Ana_Souza.html"},
		{"Planilha", "Ana  \tSouza", "csv", "Planilha_Ana_Souza.csv"},
		{"Planilha", "Ana", "xlsx", "Planilha_Ana.xlsx"},
	}
	for _, tt := range tests {
		if got := Filename(tt.prefix, tt.name, tt.ext); got != tt.want {
			t.Errorf("Filename(%q, %q, %q) = %q, want %q", tt.prefix, tt.name, tt.ext, got, tt.want)
		}
	}
}

func TestDocument(t *testing.T) {
	exp, err := newAssembler(t).Document(testSnapshot())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if exp.Filename != "Relatorio_Ana_Souza.html" {
		t.Errorf("Filename = %q", exp.Filename)
	}
	if exp.ContentType != ContentTypeHTML {
		t.Errorf("ContentType = %q", exp.ContentType)
	}
	html := string(exp.Data)
	for _, want := range []string{
		"Relatório de Campo",
		"Ana  Souza",
		"03/05/2024",
		"R$ 500,50",
		"R$ 500,00",
		"R$ -0,50",
		"Dados para Reembolso (PIX)",
		"data:image/jpeg;base64,AQID",
		"Lista de Notas",
		"02/05/2024",
		"Anexo #1 - Alimentação",
		"Valor: R$ 50,00",
		"data:image/jpeg;base64,/9j/2Q==",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(html, "Anexo #2") {
		t.Error("record without receipt must not produce an attachment")
	}
	if strings.Contains(html, "ZgotmplZ") {
		t.Error("data URI was filtered by the template engine")
	}
	// Rows keep canonical order: newest first.
	if strings.Index(html, "02/05/2024") > strings.Index(html, "01/05/2024") {
		t.Error("rows out of order")
	}
}

func TestDocumentWithoutPix(t *testing.T) {
	snap := testSnapshot()
	snap.Settings.PixQRCode = nil
	exp, err := newAssembler(t).Document(snap)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if strings.Contains(string(exp.Data), "Dados para Reembolso") {
		t.Error("PIX section rendered without a QR code")
	}
}

func TestDocumentEscapesDescription(t *testing.T) {
	snap := testSnapshot()
	snap.Expenses[1].Description = "<script>x</script>"
	exp, err := newAssembler(t).Document(snap)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if strings.Contains(string(exp.Data), "<script>x</script>") {
		t.Error("description was not escaped")
	}
}

func TestSheet(t *testing.T) {
	exp, err := newAssembler(t).Sheet(testSnapshot())
	if err != nil {
		t.Fatalf("Sheet() error = %v", err)
	}
	if exp.Filename != "Planilha_Ana_Souza.csv" {
		t.Errorf("Filename = %q", exp.Filename)
	}
	if !bytes.HasPrefix(exp.Data, utf8BOM) {
		t.Fatal("missing UTF-8 byte order mark")
	}

	r := csv.NewReader(bytes.NewReader(exp.Data[len(utf8BOM):]))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	want := [][]string{
		{"RELATORIO DE DESPESAS - ANA  SOUZA"},
		{"Gerado em:", "03/05/2024"},
		{"RESUMO FINANCEIRO"},
		{"Adiantamento:", "R$ 500,00"},
		{"Gasto:", "R$ 500,50"},
		{"Saldo:", "R$ -0,50"},
		{"Data", "Categoria", "Descricao", "Valor (R$)"},
		{"02/05/2024", "Alimentação", "almoço; equipe", "50,00"},
		{"01/05/2024", "Combustível", "posto", "450,50"},
	}
	// encoding/csv skips blank lines when reading.
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %q", len(rows), len(want), rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}
}

func TestWorkbook(t *testing.T) {
	exp, err := newAssembler(t).Workbook(testSnapshot())
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	if exp.Filename != "Planilha_Ana_Souza.xlsx" || exp.ContentType != ContentTypeXLSX {
		t.Errorf("got %q %q", exp.Filename, exp.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(exp.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != sheetName {
		t.Fatalf("sheets = %v", got)
	}
	cell := func(ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheetName, ref, excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", ref, err)
		}
		return v
	}
	number := func(ref string) float64 {
		t.Helper()
		v, err := strconv.ParseFloat(cell(ref), 64)
		if err != nil {
			t.Fatalf("cell %s = %q is not numeric", ref, cell(ref))
		}
		return v
	}

	if got := cell("A1"); got != "RELATORIO DE DESPESAS - ANA  SOUZA" {
		t.Errorf("A1 = %q", got)
	}
	if got := number("B7"); got != -0.5 {
		t.Errorf("balance = %v, want -0.5", got)
	}
	if got := cell("C10"); got != "almoço; equipe" {
		t.Errorf("C10 = %q", got)
	}
	if got := number("D11"); got != 450.5 {
		t.Errorf("D11 = %v, want 450.5", got)
	}
}

func TestRender(t *testing.T) {
	a := newAssembler(t)
	for _, format := range Formats() {
		exp, err := a.Render(strings.ToUpper(format), testSnapshot())
		if err != nil {
			t.Errorf("Render(%s) error = %v", format, err)
			continue
		}
		if !strings.HasSuffix(exp.Filename, "."+format) {
			t.Errorf("Render(%s) filename = %q", format, exp.Filename)
		}
	}
	if _, err := a.Render("pdf", testSnapshot()); err == nil {
		t.Error("Render(pdf) should fail")
	}
}

func TestEmptyLedgerExports(t *testing.T) {
	a := newAssembler(t)
	snap := core.Snapshot{Settings: core.DefaultSettings(), GeneratedAt: time.Now()}
	for _, format := range Formats() {
		if _, err := a.Render(format, snap); err != nil {
			t.Errorf("Render(%s) on empty ledger: %v", format, err)
		}
	}
}
