package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensy/internal/capture"
	"expensy/internal/core"
	"expensy/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// requestError marks input the server could not read at all.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "malformed request: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return http.StatusBadRequest
	case core.IsValidation(err), errors.Is(err, core.ErrImageDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrActionNotFound), errors.Is(err, core.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDraftSubmitted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Server faults are logged and their
// details withheld.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := errorDetail{Message: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		detail.Field = ve.Field
	}
	if status >= 500 {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err.Error())
		detail = errorDetail{Message: "internal error"}
	}
	writeJSON(w, status, errorBody{Error: detail})
}

type expenseView struct {
	ID              string        `json:"id"`
	Date            core.Date     `json:"date"`
	Amount          core.Money    `json:"amount"`
	Formatted       string        `json:"formatted"`
	Category        core.Category `json:"category"`
	Description     string        `json:"description"`
	IsPersonalMoney bool          `json:"isPersonalMoney"`
	HasReceipt      bool          `json:"hasReceipt"`
	Timestamp       int64         `json:"timestamp"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:              e.ID,
		Date:            e.Date,
		Amount:          e.Amount,
		Formatted:       e.Amount.BRL(),
		Category:        e.Category,
		Description:     e.Description,
		IsPersonalMoney: e.IsPersonalMoney,
		HasReceipt:      e.HasReceipt(),
		Timestamp:       e.Timestamp.UnixMilli(),
	}
}

type draftView struct {
	ID              string        `json:"id"`
	State           capture.State `json:"state"`
	Date            core.Date     `json:"date"`
	Amount          core.Money    `json:"amount"`
	Category        core.Category `json:"category"`
	Description     string        `json:"description"`
	IsPersonalMoney bool          `json:"isPersonalMoney"`
	HasReceipt      bool          `json:"hasReceipt"`
	Suggested       []string      `json:"suggested"`
	ExpenseID       string        `json:"expenseId,omitempty"`
}

func newDraftView(v capture.View) draftView {
	suggested := v.Draft.Suggested.Names()
	if suggested == nil {
		suggested = []string{}
	}
	return draftView{
		ID:              v.ID,
		State:           v.State,
		Date:            v.Draft.Date,
		Amount:          v.Draft.Amount,
		Category:        v.Draft.Category,
		Description:     v.Draft.Description,
		IsPersonalMoney: v.Draft.IsPersonalMoney,
		HasReceipt:      v.Draft.ReceiptImage != nil,
		Suggested:       suggested,
		ExpenseID:       v.ExpenseID,
	}
}

type actionView struct {
	ID           string          `json:"id"`
	Kind         core.ActionKind `json:"kind"`
	ExpenseID    string          `json:"expenseId,omitempty"`
	Title        string          `json:"title"`
	Message      string          `json:"message"`
	ConfirmLabel string          `json:"confirmLabel"`
	ConfirmURL   string          `json:"confirmUrl"`
	CancelURL    string          `json:"cancelUrl"`
}

func newActionView(a core.PendingAction) actionView {
	base := "/api/actions/" + a.ID
	return actionView{
		ID:           a.ID,
		Kind:         a.Kind,
		ExpenseID:    a.ExpenseID,
		Title:        a.Prompt.Title,
		Message:      a.Prompt.Message,
		ConfirmLabel: a.Prompt.ConfirmLabel,
		ConfirmURL:   base + "/confirm",
		CancelURL:    base + "/cancel",
	}
}

type categoryView struct {
	Category core.Category `json:"category"`
	Amount   core.Money    `json:"amount"`
	Percent  float64       `json:"percent"`
}

type summaryView struct {
	Count         int            `json:"count"`
	TotalSpent    core.Money     `json:"totalSpent"`
	Advance       core.Money     `json:"advance"`
	Balance       core.Money     `json:"balance"`
	OverLimit     bool           `json:"overLimit"`
	PersonalMoney core.Money     `json:"personalMoney"`
	ByCategory    []categoryView `json:"byCategory"`
	Recent        []expenseView  `json:"recent"`
}

func newSummaryView(s core.Summary) summaryView {
	v := summaryView{
		Count:         s.Count,
		TotalSpent:    s.TotalSpent,
		Advance:       s.Advance,
		Balance:       s.Balance,
		OverLimit:     s.OverLimit(),
		PersonalMoney: s.PersonalMoney,
		ByCategory:    make([]categoryView, 0, len(s.ByCategory)),
		Recent:        []expenseView{},
	}
	for _, ca := range s.ByCategory {
		v.ByCategory = append(v.ByCategory, categoryView{Category: ca.Category, Amount: ca.Amount, Percent: ca.Percent})
	}
	return v
}
