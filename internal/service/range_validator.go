package service

import (
	"github.com/health-attestation-server/internal/domain"
)

// RangeValidator checks measurement values against the possible range of
// their test type. It holds no mutable state and is safe for concurrent use.
type RangeValidator struct {
	catalog domain.StandardsCatalog
}

// NewRangeValidator creates a validator over the given catalog
func NewRangeValidator(catalog domain.StandardsCatalog) *RangeValidator {
	return &RangeValidator{catalog: catalog}
}

// Validate checks value against the possible range of testName. Both bounds
// are inclusive. The result is always returned; err is non-nil exactly when
// the result is not valid.
func (v *RangeValidator) Validate(testName string, value float64) (*domain.RangeValidationResult, error) {
	result := &domain.RangeValidationResult{
		TestName: testName,
		Value:    value,
	}

	standard, ok := v.catalog.Lookup(testName)
	if !ok {
		err := domain.NewUnknownTestTypeError(testName)
		result.Error = err.Message
		return result, err
	}

	possible := standard.PossibleRange
	result.PossibleRange = &possible

	if !possible.Contains(value) {
		err := domain.NewOutOfRangeError(value, possible)
		result.Error = err.Message
		return result, err
	}

	result.Valid = true
	return result, nil
}
