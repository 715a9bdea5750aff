// Package report turns a ledger snapshot into downloadable artifacts. All
// exports are pure functions of the snapshot.
package report

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"expensy/internal/core"
	"expensy/internal/metrics"
	"expensy/web"
)

const (
	FormatHTML = "html"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export is a finished artifact ready to be written or served.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Assembler renders exports. It is safe for concurrent use.
type Assembler struct {
	tmpl *template.Template
}

func New() (*Assembler, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Assembler{tmpl: tmpl}, nil
}

// Formats lists the export formats Render accepts.
func Formats() []string {
	return []string{FormatHTML, FormatCSV, FormatXLSX}
}

// Render produces the export for format.
func (a *Assembler) Render(format string, snap core.Snapshot) (Export, error) {
	var (
		exp Export
		err error
	)
	switch strings.ToLower(format) {
	case FormatHTML:
		exp, err = a.Document(snap)
	case FormatCSV:
		exp, err = a.Sheet(snap)
	case FormatXLSX:
		exp, err = a.Workbook(snap)
	default:
		return Export{}, fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
	if err == nil {
		metrics.ExportsGenerated.WithLabelValues(strings.ToLower(format)).Inc()
	}
	return exp, err
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename builds "<prefix>_<name>.<ext>" with whitespace runs in the user
// name replaced by underscores.
func Filename(prefix, userName, ext string) string {
	return prefix + "_" + whitespace.ReplaceAllString(userName, "_") + "." + ext
}

func generatedOn(snap core.Snapshot) string {
	return snap.GeneratedAt.Format("02/01/2006")
}
