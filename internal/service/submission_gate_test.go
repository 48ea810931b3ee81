package service

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/standards"
	"github.com/health-attestation-server/pkg/canonical"
)

func TestSubmissionGate_Decide(t *testing.T) {
	v := NewRangeValidator(standards.Default())
	b := NewAttestationBuilder(testAttestationConfig(), fixedClock)
	g := NewSubmissionGate()

	result, err := v.Validate("Blood Glucose", 95)
	require.NoError(t, err)
	attestation, hash, err := b.Build("Blood Glucose", 95, "patient-1", result)
	require.NoError(t, err)

	decision, err := g.Decide(attestation)
	require.NoError(t, err)

	assert.True(t, decision.Eligible)
	assert.Equal(t, hash, decision.Commitment.AttestationHash)
	assert.Equal(t,
		canonical.Keccak256Hex([]byte(`{"testName":"Blood Glucose","patientId":"patient-1","epochSeconds":1709294400}`)),
		decision.Commitment.MetadataHash)
	assert.NotEqual(t, decision.Commitment.AttestationHash, decision.Commitment.MetadataHash)
}

func TestSubmissionGate_NeverEligibleOnFailedCheck(t *testing.T) {
	v := NewRangeValidator(standards.Default())
	b := NewAttestationBuilder(testAttestationConfig(), fixedClock)
	g := NewSubmissionGate()

	property := func(value float64) bool {
		result, _ := v.Validate("Temperature", value)
		attestation, _, err := b.Build("Temperature", value, "p", result)
		if err != nil {
			return false
		}
		decision, err := g.Decide(attestation)
		if err != nil {
			return false
		}
		return decision.Eligible == attestation.AllChecksPassed && decision.Eligible == result.Valid
	}
	require.NoError(t, quick.Check(property, nil))
}

func TestSubmissionGate_MetadataIgnoresValue(t *testing.T) {
	g := NewSubmissionGate()
	base := domain.Attestation{TestName: "Heart Rate", PatientID: "p", EpochSeconds: 10, Value: 70, AllChecksPassed: true}
	other := base
	other.Value = 80

	d1, err := g.Decide(&base)
	require.NoError(t, err)
	d2, err := g.Decide(&other)
	require.NoError(t, err)

	assert.Equal(t, d1.Commitment.MetadataHash, d2.Commitment.MetadataHash)
	assert.NotEqual(t, d1.Commitment.AttestationHash, d2.Commitment.AttestationHash)
}

func TestCommit_RequiresAttestation(t *testing.T) {
	_, err := Commit(nil)
	assert.Error(t, err)
}
