package domain

import (
	"errors"
	"fmt"
)

// Error kinds for the attestation pipeline
const (
	ErrKindInput           = "INPUT_ERROR"
	ErrKindUnknownTestType = "UNKNOWN_TEST_TYPE"
	ErrKindOutOfRange      = "OUT_OF_POSSIBLE_RANGE"
	ErrKindLedgerSubmit    = "LEDGER_SUBMIT_ERROR"
	ErrKindLedgerRead      = "LEDGER_READ_ERROR"
	ErrKindStore           = "STORE_ERROR"
)

// CheckRangeValidation tags errors produced by the range check.
const CheckRangeValidation = "range_validation"

// Sentinels matched with errors.Is against an *AttestationError of the same kind.
var (
	ErrInput              = errors.New("invalid input")
	ErrUnknownTestType    = errors.New("unknown test type")
	ErrOutOfPossibleRange = errors.New("value outside possible range")
	ErrLedgerSubmit       = errors.New("ledger submission failed")
	ErrLedgerRead         = errors.New("ledger read failed")
	ErrStore              = errors.New("submission store failed")
)

// Ledger-level failure causes.
var (
	ErrInvalidCredentialIndex = errors.New("Invalid index")
	ErrNotAuthorized          = errors.New("Not authorized")
	ErrOnlyOwner              = errors.New("Only owner")
	ErrLedgerUnavailable      = errors.New("ledger unavailable")
	ErrNotFound               = errors.New("not found")
)

// ErrIdempotencyConflict marks an idempotency key reused for a different measurement.
var ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

var sentinelByKind = map[string]error{
	ErrKindInput:           ErrInput,
	ErrKindUnknownTestType: ErrUnknownTestType,
	ErrKindOutOfRange:      ErrOutOfPossibleRange,
	ErrKindLedgerSubmit:    ErrLedgerSubmit,
	ErrKindLedgerRead:      ErrLedgerRead,
	ErrKindStore:           ErrStore,
}

// AttestationError is the structured error returned by every pipeline stage.
type AttestationError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Check   string `json:"check,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AttestationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *AttestationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *AttestationError) Is(target error) bool {
	return sentinelByKind[e.Kind] == target
}

// NewAttestationError creates a new AttestationError
func NewAttestationError(kind, message string, cause error) *AttestationError {
	return &AttestationError{
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
}

// NewInputError reports a missing or malformed request field.
func NewInputError(field, message string) *AttestationError {
	return &AttestationError{
		Kind:    ErrKindInput,
		Message: message,
		Details: field,
	}
}

// NewIdempotencyConflictError reports a key already bound to another payload.
func NewIdempotencyConflictError() *AttestationError {
	return &AttestationError{
		Kind:    ErrKindInput,
		Message: "idempotency key already used for a different measurement",
		Details: "idempotencyKey",
		Err:     ErrIdempotencyConflict,
	}
}

// NewUnknownTestTypeError reports a catalog miss.
func NewUnknownTestTypeError(testName string) *AttestationError {
	return &AttestationError{
		Kind:    ErrKindUnknownTestType,
		Message: fmt.Sprintf("Unknown test type: %s", testName),
		Check:   CheckRangeValidation,
	}
}

// NewOutOfRangeError reports a value outside the physiologically possible range.
func NewOutOfRangeError(value float64, possible StandardRange) *AttestationError {
	return &AttestationError{
		Kind:    ErrKindOutOfRange,
		Message: fmt.Sprintf("Value outside possible range %s", possible),
		Details: formatBound(value),
		Check:   CheckRangeValidation,
	}
}

// ErrorKind returns the kind of err when it is an *AttestationError.
func ErrorKind(err error) string {
	var ae *AttestationError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
