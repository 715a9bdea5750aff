package log

import "expensy/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldExpenseID   = "expense_id"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldHasReceipt  = "has_receipt"
	FieldDraftID     = "draft_id"
	FieldActionID    = "action_id"
	FieldActionKind  = "action_kind"
	FieldKey         = "key"
	FieldBytes       = "bytes"
	FieldFormat      = "format"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentStorage    = "storage"
	ComponentExtraction = "extraction"
	ComponentCapture    = "capture"
	ComponentImaging    = "imaging"
	ComponentReport     = "report"
	ComponentCache      = "cache"
	ComponentSecurity   = "security"
	ComponentTrace      = "trace"
	ComponentBackend    = "backend"
	ComponentCLI        = "cli"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpRemove   = "remove"
	OpClear    = "clear"
	OpReset    = "reset"
	OpLoad     = "load"
	OpPersist  = "persist"
	OpSettings = "update_settings"
	OpConfirm  = "confirm"
	OpCancel   = "cancel"
	OpExtract  = "extract"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds the loggable parts of a record. Description and image
// bytes are left out.
func (f LogFields) WithExpense(e core.Expense) LogFields {
	f[FieldExpenseID] = e.ID
	f[FieldAmountCents] = e.Amount.Cents
	f[FieldCategory] = string(e.Category)
	f[FieldHasReceipt] = e.HasReceipt()
	return f
}

func (f LogFields) WithAction(a core.PendingAction) LogFields {
	f[FieldActionID] = a.ID
	f[FieldActionKind] = string(a.Kind)
	if a.ExpenseID != "" {
		f[FieldExpenseID] = a.ExpenseID
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
