package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	CategoryParking Category = "Estacionamento"
	CategoryWashing Category = "Lavagem"
	CategoryTools   Category = "Ferramentas"
	CategoryFuel    Category = "Combustível"
	CategoryLodging Category = "Hospedagem"
	CategoryFood    Category = "Alimentação"
	CategoryOther   Category = "Outros"
)

// DefaultUserName labels reports until the user sets a name.
const DefaultUserName = "Técnico de Campo"

const isoDate = "2006-01-02"

type (
	// Category is one of the closed set of expense categories, stored by label.
	Category string

	Date struct {
		time.Time
	}

	Expense struct {
		ID              string    `json:"id"`
		Timestamp       time.Time `json:"timestamp"`
		Date            Date      `json:"date"`
		Amount          Money     `json:"amount"`
		Category        Category  `json:"category"`
		Description     string    `json:"description"`
		ReceiptImage    *Image    `json:"receiptImage,omitempty"`
		IsPersonalMoney bool      `json:"isPersonalMoney"`
	}

	Settings struct {
		UserName       string `json:"userName"`
		MonthlyAdvance Money  `json:"monthlyAdvance"`
		PixQRCode      *Image `json:"pixQrCode,omitempty"`
	}

	// Snapshot is an immutable view of the ledger used by readers and exports.
	Snapshot struct {
		Expenses    []Expense
		Settings    Settings
		GeneratedAt time.Time
	}
)

// Categories lists the closed category set in display order.
var Categories = []Category{
	CategoryParking,
	CategoryWashing,
	CategoryTools,
	CategoryFuel,
	CategoryLodging,
	CategoryFood,
	CategoryOther,
}

var categoryAliases = map[string]Category{
	"parking": CategoryParking,
	"washing": CategoryWashing,
	"tools":   CategoryTools,
	"fuel":    CategoryFuel,
	"lodging": CategoryLodging,
	"food":    CategoryFood,
	"other":   CategoryOther,
	"others":  CategoryOther,
}

// ParseCategory resolves a label or English name, ignoring case and accents.
func ParseCategory(s string) (Category, bool) {
	key := foldKey(s)
	if key == "" {
		return "", false
	}
	for _, c := range Categories {
		if foldKey(string(c)) == key {
			return c, true
		}
	}
	c, ok := categoryAliases[key]
	return c, ok
}

func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return strings.ToLower(out)
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

// Display formats the date as dd/mm/yyyy.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ISO())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Older payloads may carry a full timestamp; keep only the calendar part.
	if len(s) > len(isoDate) {
		s = s[:len(isoDate)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{UserName: DefaultUserName}
}

func (s Settings) Validate() error {
	if s.MonthlyAdvance.Cents < 0 {
		return &ValidationError{Field: "monthlyAdvance", Err: ErrNegativeAdvance}
	}
	if s.MonthlyAdvance.Cents > MaxCents {
		return &ValidationError{Field: "monthlyAdvance", Err: ErrAmountTooLarge}
	}
	return nil
}

// HasReceipt reports whether the record carries a receipt photo.
func (e Expense) HasReceipt() bool {
	return e.ReceiptImage != nil && len(e.ReceiptImage.Data) > 0
}

// Summary computes the derived totals of the snapshot.
func (s Snapshot) Summary() Summary {
	return Summarize(s.Expenses, s.Settings)
}

// WithReceipts returns the records that carry a receipt, in canonical order.
func (s Snapshot) WithReceipts() []Expense {
	var out []Expense
	for _, e := range s.Expenses {
		if e.HasReceipt() {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks a record read back from storage. Unknown categories are
// tolerated so that old data keeps loading.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return &ValidationError{Field: "id", Err: errors.New("missing")}
	}
	if err := e.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	return nil
}

// MarshalJSON writes the timestamp as Unix milliseconds.
func (e Expense) MarshalJSON() ([]byte, error) {
	type alias Expense
	return json.Marshal(struct {
		alias
		Timestamp int64 `json:"timestamp"`
	}{alias(e), e.Timestamp.UnixMilli()})
}

// UnmarshalJSON accepts the timestamp as Unix milliseconds or an RFC 3339 string.
func (e *Expense) UnmarshalJSON(b []byte) error {
	type alias Expense
	aux := struct {
		*alias
		Timestamp any `json:"timestamp"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	switch v := aux.Timestamp.(type) {
	case float64:
		e.Timestamp = time.UnixMilli(int64(v)).UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		e.Timestamp = t
	case nil:
		e.Timestamp = time.Time{}
	default:
		return fmt.Errorf("parse timestamp: unexpected %T", v)
	}
	return nil
}
