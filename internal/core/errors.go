package core

import "errors"

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNegativeAdvance = errors.New("monthly advance cannot be negative")
	ErrAmountTooLarge  = errors.New("amount exceeds R$ 1.000.000.000,00")

	// ErrImageDecode reports an unreadable image source.
	ErrImageDecode = errors.New("image decode failed")

	// ErrExtractionUnavailable covers every reason the extraction service gave no usable answer.
	// It is logged, never surfaced to the user.
	ErrExtractionUnavailable = errors.New("receipt extraction unavailable")

	// ErrStorageRead reports a persisted blob that exists but cannot be parsed.
	ErrStorageRead = errors.New("stored state unreadable")

	ErrActionNotFound = errors.New("pending action not found")
	ErrDraftNotFound  = errors.New("draft not found")
	ErrDraftSubmitted = errors.New("draft already submitted")
)

// ValidationError rejects user input; no record is created.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
