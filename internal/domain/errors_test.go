package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAttestationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AttestationError
		kind     string
		sentinel error
		message  string
	}{
		{
			name:     "Input error",
			err:      NewInputError("identity,value", "Missing required fields: identity, value"),
			kind:     ErrKindInput,
			sentinel: ErrInput,
			message:  "INPUT_ERROR: Missing required fields: identity, value",
		},
		{
			name:     "Unknown test type",
			err:      NewUnknownTestTypeError("Unknown Panel"),
			kind:     ErrKindUnknownTestType,
			sentinel: ErrUnknownTestType,
			message:  "UNKNOWN_TEST_TYPE: Unknown test type: Unknown Panel",
		},
		{
			name:     "Out of range",
			err:      NewOutOfRangeError(650, StandardRange{Min: 20, Max: 600}),
			kind:     ErrKindOutOfRange,
			sentinel: ErrOutOfPossibleRange,
			message:  "OUT_OF_POSSIBLE_RANGE: Value outside possible range [20, 600]",
		},
		{
			name:     "Ledger submit with cause",
			err:      NewAttestationError(ErrKindLedgerSubmit, "ledger submission failed", errors.New("reverted")),
			kind:     ErrKindLedgerSubmit,
			sentinel: ErrLedgerSubmit,
			message:  "LEDGER_SUBMIT_ERROR: ledger submission failed: reverted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, tt.err.Kind)
			}

			if tt.err.Error() != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, tt.err.Error())
			}

			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("Expected errors.Is to match %v", tt.sentinel)
			}

			if ErrorKind(fmt.Errorf("wrapped: %w", tt.err)) != tt.kind {
				t.Errorf("Expected ErrorKind to see through wrapping")
			}
		})
	}
}

func TestAttestationError_RangeChecksAreTagged(t *testing.T) {
	if got := NewUnknownTestTypeError("X").Check; got != CheckRangeValidation {
		t.Errorf("Expected check %s, got %s", CheckRangeValidation, got)
	}
	if got := NewOutOfRangeError(1, StandardRange{Min: 2, Max: 3}).Check; got != CheckRangeValidation {
		t.Errorf("Expected check %s, got %s", CheckRangeValidation, got)
	}
	if got := NewInputError("value", "bad").Check; got != "" {
		t.Errorf("Expected input errors to carry no check, got %s", got)
	}
}

func TestAttestationError_KindsDoNotCrossMatch(t *testing.T) {
	err := NewAttestationError(ErrKindStore, "failed to record confirmed submission", ErrLedgerUnavailable)

	if errors.Is(err, ErrLedgerSubmit) {
		t.Error("Store error must not match the ledger submit sentinel")
	}
	if !errors.Is(err, ErrLedgerUnavailable) {
		t.Error("Expected the wrapped cause to stay reachable")
	}
	if errors.Unwrap(err) != ErrLedgerUnavailable {
		t.Error("Expected Unwrap to return the cause")
	}
}

func TestErrorKind_PlainError(t *testing.T) {
	if kind := ErrorKind(errors.New("boom")); kind != "" {
		t.Errorf("Expected empty kind, got %s", kind)
	}
	if kind := ErrorKind(nil); kind != "" {
		t.Errorf("Expected empty kind for nil, got %s", kind)
	}
}

func TestNewOutOfRangeError_UnboundedRange(t *testing.T) {
	err := NewOutOfRangeError(-5, StandardRange{Min: 0, Max: Unbounded})

	want := "Value outside possible range [0, Infinity]"
	if err.Message != want {
		t.Errorf("Expected %q, got %q", want, err.Message)
	}
	if err.Details != "-5" {
		t.Errorf("Expected details -5, got %s", err.Details)
	}
}
