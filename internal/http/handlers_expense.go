package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"expensy/internal/core"
	"expensy/internal/imaging"
	"expensy/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	exps := s.ledger.Expenses()
	out := make([]expenseView, 0, len(exps))
	for _, e := range exps {
		out = append(out, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := s.ledger.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Message: "expense not found"}})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCreateExpense appends a record in one step, without a draft session.
// Fields left out take the blank-form defaults.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in expenseInput
	if err := decodeJSON(w, r, maxExpenseBody, &in); err != nil {
		fail(w, r, err)
		return
	}
	edit, err := in.parse()
	if err != nil {
		fail(w, r, err)
		return
	}
	d := core.NewDraft(time.Now())
	edit(&d)

	if in.ReceiptImage != nil && *in.ReceiptImage != "" {
		raw, err := core.ParseDataURI(*in.ReceiptImage)
		if err != nil {
			fail(w, r, err)
			return
		}
		img, err := imaging.NormalizeBytes(raw.Data, imaging.ReceiptProfile)
		if err != nil {
			fail(w, r, err)
			return
		}
		d.ReceiptImage = &img
	}

	e, err := s.ledger.Append(r.Context(), d)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/expenses/"+e.ID)
	writeJSON(w, http.StatusCreated, newExpenseView(e))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	n := 5
	if v := r.URL.Query().Get("recent"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			n = parsed
		}
	}
	view := newSummaryView(s.ledger.Totals())
	for e := range s.ledger.RecentActivity(n) {
		view.Recent = append(view.Recent, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, view)
}

// Destructive operations are staged and answered with 202 and the prompt
// the client must show. They run only when the action is confirmed.

func (s *Server) handleRequestRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.ledger.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Message: "expense not found"}})
		return
	}
	s.stage(w, r, s.ledger.RequestRemove(id))
}

func (s *Server) handleRequestClear(w http.ResponseWriter, r *http.Request) {
	s.stage(w, r, s.ledger.RequestClear())
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	s.stage(w, r, s.ledger.RequestReset())
}

func (s *Server) stage(w http.ResponseWriter, r *http.Request, a core.PendingAction) {
	log.FromContext(r.Context()).InfoContext(r.Context(), "destructive action staged",
		log.NewFields().WithAction(a).ToSlice()...)
	w.Header().Set("Location", "/api/actions/"+a.ID)
	writeJSON(w, http.StatusAccepted, newActionView(a))
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	a, ok := s.ledger.Pending(chi.URLParam(r, "id"))
	if !ok {
		fail(w, r, core.ErrActionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newActionView(a))
}

func (s *Server) handleResolveAction(confirm bool) http.HandlerFunc {
	status := "cancelled"
	if confirm {
		status = "confirmed"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := s.ledger.Resolve(r.Context(), chi.URLParam(r, "id"), confirm)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"action": newActionView(a),
		})
	}
}
