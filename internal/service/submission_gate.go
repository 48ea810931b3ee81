package service

import (
	"fmt"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/pkg/canonical"
)

// SubmissionGate decides whether an attestation may be committed to the ledger
type SubmissionGate struct{}

// NewSubmissionGate creates a new gate
func NewSubmissionGate() *SubmissionGate {
	return &SubmissionGate{}
}

// Decide computes the commitment of attestation. Eligibility tracks
// AllChecksPassed exactly.
func (g *SubmissionGate) Decide(attestation *domain.Attestation) (*domain.GateDecision, error) {
	commitment, err := Commit(attestation)
	if err != nil {
		return nil, err
	}
	return &domain.GateDecision{
		Eligible:   attestation.AllChecksPassed,
		Commitment: *commitment,
	}, nil
}

// Commit computes both commitment hashes of an attestation. The metadata
// hash covers only the provenance triple, so it can be audited without the
// full attestation.
func Commit(attestation *domain.Attestation) (*domain.Commitment, error) {
	if attestation == nil {
		return nil, fmt.Errorf("attestation is required")
	}
	attestationHash, err := canonical.Hash(attestation)
	if err != nil {
		return nil, fmt.Errorf("failed to hash attestation: %w", err)
	}
	metadataHash, err := canonical.Hash(attestation.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to hash metadata: %w", err)
	}
	return &domain.Commitment{
		AttestationHash: attestationHash,
		MetadataHash:    metadataHash,
	}, nil
}
