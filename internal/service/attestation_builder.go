package service

import (
	"fmt"
	"time"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/pkg/canonical"
)

// Clock returns the current wall-clock time
type Clock func() time.Time

// AttestationBuilder assembles canonical attestations and their content hash
type AttestationBuilder struct {
	clock      Clock
	verifiedBy string
	version    string
}

// NewAttestationBuilder creates a builder stamping attestations with the
// given verifier tag and version.
func NewAttestationBuilder(cfg domain.AttestationConfig, clock Clock) *AttestationBuilder {
	if clock == nil {
		clock = time.Now
	}
	return &AttestationBuilder{
		clock:      clock,
		verifiedBy: cfg.VerifiedBy,
		version:    cfg.Version,
	}
}

// Build records the outcome of a range check as an attestation and returns
// it with its hash. A failed range result still yields an attestation, with
// AllChecksPassed false.
func (b *AttestationBuilder) Build(testName string, value float64, patientID string, rangeResult *domain.RangeValidationResult) (*domain.Attestation, string, error) {
	if rangeResult == nil {
		return nil, "", fmt.Errorf("range result is required")
	}

	createdAt := canonical.NewTime(b.clock())

	var possible *domain.StandardRange
	if rangeResult.PossibleRange != nil {
		r := *rangeResult.PossibleRange
		possible = &r
	}

	attestation := &domain.Attestation{
		TestName:     testName,
		Value:        value,
		PatientID:    patientID,
		CreatedAt:    createdAt,
		EpochSeconds: createdAt.Unix(),
		RangeCheck: domain.RangeCheck{
			Passed:        rangeResult.Valid,
			PossibleRange: possible,
		},
		AllChecksPassed:      rangeResult.Valid,
		RequiresManualReview: false,
		VerifiedBy:           b.verifiedBy,
		Version:              b.version,
	}

	hash, err := canonical.Hash(attestation)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash attestation: %w", err)
	}
	return attestation, hash, nil
}
