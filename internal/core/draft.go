package core

import "time"

// Field names a user-editable draft field.
type Field uint8

const (
	FieldAmount Field = 1 << iota
	FieldCategory
	FieldDate
	FieldDescription
)

// FieldSet is a bit set of draft fields.
type FieldSet uint8

func (s FieldSet) Has(f Field) bool { return s&FieldSet(f) != 0 }

func (s *FieldSet) Add(f Field) { *s |= FieldSet(f) }

func (s *FieldSet) Remove(f Field) { *s &^= FieldSet(f) }

// Names lists the set's fields by wire name.
func (s FieldSet) Names() []string {
	var out []string
	for _, f := range []Field{FieldAmount, FieldCategory, FieldDate, FieldDescription} {
		if s.Has(f) {
			out = append(out, f.String())
		}
	}
	return out
}

func (f Field) String() string {
	switch f {
	case FieldAmount:
		return "amount"
	case FieldCategory:
		return "category"
	case FieldDate:
		return "date"
	case FieldDescription:
		return "description"
	}
	return "unknown"
}

// Draft is an expense being assembled, not yet in the ledger.
type Draft struct {
	Date            Date
	Amount          Money
	Category        Category
	Description     string
	ReceiptImage    *Image
	IsPersonalMoney bool

	// Suggested marks fields whose current value came from extraction.
	Suggested FieldSet
}

// NewDraft returns the blank form: today's date, parking category, no amount.
func NewDraft(now time.Time) Draft {
	return Draft{
		Date:     DateOf(now),
		Category: CategoryParking,
	}
}

// Validate checks the draft can become a record.
func (d Draft) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if !d.Category.Valid() {
		return &ValidationError{Field: "category", Err: ErrInvalidCategory}
	}
	return nil
}

// Extraction is the best-effort guess returned by the extraction service.
// A nil field means the service did not suggest it.
type Extraction struct {
	Amount   *Money
	Category *Category
	Date     *Date
}

func (x Extraction) Empty() bool {
	return x.Amount == nil && x.Category == nil && x.Date == nil
}

// Merge overlays the extraction on the draft. Fields present in x overwrite the
// draft (even values the user already typed) and are marked suggested; absent
// fields and the receipt image are left alone.
func (d Draft) Merge(x Extraction) Draft {
	if x.Amount != nil {
		d.Amount = *x.Amount
		d.Suggested.Add(FieldAmount)
	}
	if x.Category != nil && x.Category.Valid() {
		d.Category = *x.Category
		d.Suggested.Add(FieldCategory)
	}
	if x.Date != nil && !x.Date.IsZero() {
		d.Date = *x.Date
		d.Suggested.Add(FieldDate)
	}
	return d
}
