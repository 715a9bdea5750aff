package http

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"expensy/internal/log"
	"expensy/internal/report"
)

var exportFiles = map[string]string{
	"report.html": report.FormatHTML,
	"sheet.csv":   report.FormatCSV,
	"sheet.xlsx":  report.FormatXLSX,
}

// handleExport renders an export of the ledger as it is now. The HTML
// report opens in the browser with ?inline=1.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFiles[chi.URLParam(r, "file")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Message: "unknown export"}})
		return
	}
	exp, err := s.reports.Render(format, s.ledger.Snapshot())
	if err != nil {
		fail(w, r, err)
		return
	}

	disposition := "attachment"
	if format == report.FormatHTML && r.URL.Query().Get("inline") != "" {
		disposition = "inline"
	}
	h := w.Header()
	h.Set("Content-Type", exp.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": exp.Filename}))
	h.Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)

	log.FromContext(r.Context()).InfoContext(r.Context(), "export served",
		log.FieldFormat, format, log.FieldBytes, len(exp.Data))
}
