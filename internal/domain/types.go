package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/health-attestation-server/pkg/canonical"
)

// StandardRange is an inclusive [Min, Max] bound. Either end may be
// infinite; an infinite bound is encoded as JSON null.
type StandardRange struct {
	Min float64
	Max float64
}

// Unbounded is the +∞ upper bound used by open-ended clinical bands.
var Unbounded = math.Inf(1)

// Contains reports whether v lies within the inclusive range.
func (r StandardRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Covers reports whether other lies entirely within r.
func (r StandardRange) Covers(other StandardRange) bool {
	return other.Min >= r.Min && other.Max <= r.Max
}

// String renders the range the way rejection messages report it.
func (r StandardRange) String() string {
	return fmt.Sprintf("[%s, %s]", formatBound(r.Min), formatBound(r.Max))
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

type wireRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// MarshalJSON encodes the range with min before max; infinite bounds become null.
func (r StandardRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRange{Min: finiteOrNil(r.Min), Max: finiteOrNil(r.Max)})
}

// UnmarshalJSON decodes a range, mapping a null min to -∞ and a null max to +∞.
func (r *StandardRange) UnmarshalJSON(data []byte) error {
	var w wireRange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Min = math.Inf(-1)
	if w.Min != nil {
		r.Min = *w.Min
	}
	r.Max = math.Inf(1)
	if w.Max != nil {
		r.Max = *w.Max
	}
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// MedicalStandard is the reference entry for one test type.
type MedicalStandard struct {
	TestName      string                   `json:"testName"`
	Unit          string                   `json:"unit"`
	PossibleRange StandardRange            `json:"possibleRange"`
	Bands         map[string]StandardRange `json:"bands,omitempty"`
}

// Band returns the named clinical band; ok is false when the standard has no
// band with that name.
func (s *MedicalStandard) Band(name string) (StandardRange, bool) {
	r, ok := s.Bands[name]
	return r, ok
}

// RangeValidationResult is the outcome of checking one value against the
// possible range of its test type.
type RangeValidationResult struct {
	Valid         bool           `json:"valid"`
	TestName      string         `json:"testName"`
	Value         float64        `json:"value"`
	PossibleRange *StandardRange `json:"possibleRange,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// RangeCheck records the range validation inside an attestation.
type RangeCheck struct {
	Passed        bool           `json:"passed"`
	PossibleRange *StandardRange `json:"possibleRange,omitempty"`
}

// Attestation is the canonical, hashable record of a validated measurement.
// Field order is the serialization order and must not change.
type Attestation struct {
	TestName             string         `json:"testName"`
	Value                float64        `json:"value"`
	PatientID            string         `json:"patientId"`
	CreatedAt            canonical.Time `json:"createdAt"`
	EpochSeconds         int64          `json:"epochSeconds"`
	RangeCheck           RangeCheck     `json:"rangeCheck"`
	AllChecksPassed      bool           `json:"allChecksPassed"`
	RequiresManualReview bool           `json:"requiresManualReview"`
	VerifiedBy           string         `json:"verifiedBy"`
	Version              string         `json:"version"`
}

// AttestationMetadata is the provenance triple hashed independently of the
// full attestation.
type AttestationMetadata struct {
	TestName     string `json:"testName"`
	PatientID    string `json:"patientId"`
	EpochSeconds int64  `json:"epochSeconds"`
}

// Metadata extracts the provenance triple of the attestation.
func (a *Attestation) Metadata() AttestationMetadata {
	return AttestationMetadata{
		TestName:     a.TestName,
		PatientID:    a.PatientID,
		EpochSeconds: a.EpochSeconds,
	}
}

// Commitment is the pair of content hashes submitted to the ledger.
type Commitment struct {
	AttestationHash string `json:"attestationHash"`
	MetadataHash    string `json:"metadataHash"`
}

// GateDecision is the submission gate's verdict for one attestation.
type GateDecision struct {
	Eligible   bool       `json:"eligible"`
	Commitment Commitment `json:"commitment"`
}

// TxRef identifies a finalized ledger transaction.
type TxRef string

// LedgerSubmission is one commitment to record under a submitter identity.
type LedgerSubmission struct {
	Identity        string `json:"identity"`
	AttestationHash string `json:"attestationHash"`
	MetadataHash    string `json:"metadataHash"`
	DataSource      string `json:"dataSource"`
}

// CredentialRecord is a ledger-resident commitment, read-only to this service.
type CredentialRecord struct {
	Index           int    `json:"index"`
	AttestationHash string `json:"attestationHash"`
	MetadataHash    string `json:"metadataHash"`
	EpochSeconds    int64  `json:"epochSeconds"`
	Verified        bool   `json:"verified"`
	DataSource      string `json:"dataSource"`
}

// Submission is the human-readable record persisted after ledger confirmation.
type Submission struct {
	TestName     string      `json:"testName"`
	Value        float64     `json:"value"`
	Unit         string      `json:"unit"`
	Attestation  Attestation `json:"attestation"`
	LedgerTxRef  TxRef       `json:"ledgerTxRef"`
	EpochSeconds int64       `json:"epochSeconds"`
	Verified     bool        `json:"verified"`
	StoredAt     time.Time   `json:"storedAt"`
}

// AttestationRequest is the input of the verify-and-submit workflow.
type AttestationRequest struct {
	Identity       string   `json:"identity"`
	TestName       string   `json:"testName"`
	Value          *float64 `json:"value"`
	PatientID      string   `json:"patientId"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
}

// MeasurementCheck is a range validation plus its advisory classification.
type MeasurementCheck struct {
	Result *RangeValidationResult `json:"result"`
	Unit   string                 `json:"unit,omitempty"`
	Bands  []string               `json:"bands"`
}

// VerificationOutcome is the result of the verify-and-submit workflow.
// Attestation is set whenever one was built, including on ledger failure.
type VerificationOutcome struct {
	Verified        bool         `json:"verified"`
	RequiresReview  bool         `json:"requiresReview,omitempty"`
	TxRef           TxRef        `json:"txRef,omitempty"`
	Attestation     *Attestation `json:"attestation,omitempty"`
	AttestationHash string       `json:"attestationHash,omitempty"`
	MetadataHash    string       `json:"metadataHash,omitempty"`
	Stored          bool         `json:"stored"`
	Replayed        bool         `json:"replayed,omitempty"`
}
