package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/pkg/canonical"
)

// WorkflowConfig carries the settings the workflow needs from configuration
type WorkflowConfig struct {
	DataSource    string
	SubmitTimeout time.Duration
	Attestation   domain.AttestationConfig
	Clock         Clock
}

// WorkflowConfigFrom extracts the workflow settings from the service configuration
func WorkflowConfigFrom(cfg *domain.Config) WorkflowConfig {
	return WorkflowConfig{
		DataSource:    cfg.Ledger.DataSource,
		SubmitTimeout: cfg.Ledger.SubmitTimeout,
		Attestation:   cfg.Attestation,
	}
}

// AttestationWorkflow composes range validation, attestation, gating, ledger
// submission and storage into the verify-and-submit operation and its reads.
type AttestationWorkflow struct {
	catalog       domain.StandardsCatalog
	validator     *RangeValidator
	builder       *AttestationBuilder
	gate          *SubmissionGate
	ledger        domain.LedgerClient
	store         domain.SubmissionStore
	guard         *IdempotencyGuard
	dataSource    string
	submitTimeout time.Duration
	clock         Clock
	logger        *logrus.Logger
}

// NewAttestationWorkflow creates a new workflow
func NewAttestationWorkflow(
	catalog domain.StandardsCatalog,
	ledger domain.LedgerClient,
	store domain.SubmissionStore,
	cfg WorkflowConfig,
	logger *logrus.Logger,
) *AttestationWorkflow {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AttestationWorkflow{
		catalog:       catalog,
		validator:     NewRangeValidator(catalog),
		builder:       NewAttestationBuilder(cfg.Attestation, clock),
		gate:          NewSubmissionGate(),
		ledger:        ledger,
		store:         store,
		guard:         NewIdempotencyGuard(cfg.Attestation.IdempotencySize, cfg.Attestation.IdempotencyTTL),
		dataSource:    cfg.DataSource,
		submitTimeout: cfg.SubmitTimeout,
		clock:         clock,
		logger:        logger,
	}
}

// Standards lists the reference catalog
func (w *AttestationWorkflow) Standards() []*domain.MedicalStandard {
	return w.catalog.List()
}

// Standard returns the reference entry for testName
func (w *AttestationWorkflow) Standard(testName string) (*domain.MedicalStandard, bool) {
	return w.catalog.Lookup(testName)
}

// Check validates a value without building an attestation and reports the
// advisory bands it falls into.
func (w *AttestationWorkflow) Check(testName string, value float64) (*domain.MeasurementCheck, error) {
	result, err := w.validator.Validate(testName, value)
	check := &domain.MeasurementCheck{Result: result, Bands: []string{}}
	if standard, ok := w.catalog.Lookup(testName); ok {
		check.Unit = standard.Unit
	}
	if err != nil {
		return check, err
	}
	bands, err := w.catalog.Classify(testName, value)
	if err != nil {
		return check, err
	}
	check.Bands = bands
	return check, nil
}

// VerifyAndSubmit runs the full pipeline for one measurement.
//
// A range failure returns an error and builds nothing. An ineligible
// attestation is returned unsubmitted. A ledger failure returns the built
// attestation together with a LEDGER_SUBMIT_ERROR and leaves the store
// untouched. When req carries an idempotency key, duplicates for the same
// identity share one execution.
func (w *AttestationWorkflow) VerifyAndSubmit(ctx context.Context, req *domain.AttestationRequest) (*domain.VerificationOutcome, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey == "" {
		return w.verifyAndSubmit(ctx, req)
	}

	fingerprint, err := requestFingerprint(req)
	if err != nil {
		return nil, err
	}

	// The shared execution answers every joined caller, so it must not die
	// with the first caller's context. submit stays bounded by submitTimeout.
	shared := context.WithoutCancel(ctx)
	key := req.Identity + "\x00" + req.IdempotencyKey
	return w.guard.Do(key, fingerprint, func() (*domain.VerificationOutcome, error) {
		return w.verifyAndSubmit(shared, req)
	})
}

// requestFingerprint hashes the measurement an idempotency key is bound to.
func requestFingerprint(req *domain.AttestationRequest) (string, error) {
	fingerprint, err := canonical.Hash(struct {
		TestName  string  `json:"testName"`
		Value     float64 `json:"value"`
		PatientID string  `json:"patientId"`
	}{req.TestName, *req.Value, req.PatientID})
	if err != nil {
		return "", domain.NewInputError("value", "measurement cannot be fingerprinted")
	}
	return fingerprint, nil
}

func (w *AttestationWorkflow) verifyAndSubmit(ctx context.Context, req *domain.AttestationRequest) (*domain.VerificationOutcome, error) {
	value := *req.Value
	run := newRequestRun(w.logger.WithFields(logrus.Fields{
		"identity":   req.Identity,
		"test_name":  req.TestName,
		"patient_id": req.PatientID,
	}))

	rangeResult, err := w.validator.Validate(req.TestName, value)
	if err != nil {
		run.reject(err)
		return nil, err
	}
	if err := run.advance(StateRangeChecked, nil); err != nil {
		return nil, err
	}

	attestation, attestationHash, err := w.builder.Build(req.TestName, value, req.PatientID, rangeResult)
	if err != nil {
		run.reject(err)
		return nil, err
	}
	if err := run.advance(StateAttestationBuilt, logrus.Fields{"attestation_hash": attestationHash}); err != nil {
		return nil, err
	}

	decision, err := w.gate.Decide(attestation)
	if err != nil {
		run.reject(err)
		return nil, err
	}

	outcome := &domain.VerificationOutcome{
		Attestation:     attestation,
		AttestationHash: decision.Commitment.AttestationHash,
		MetadataHash:    decision.Commitment.MetadataHash,
	}

	if !decision.Eligible {
		outcome.RequiresReview = true
		run.reject(fmt.Errorf("attestation is not eligible for ledger submission"))
		return outcome, nil
	}

	if err := run.advance(StateLedgerSubmitting, nil); err != nil {
		return nil, err
	}

	txRef, err := w.submit(ctx, req.Identity, decision.Commitment)
	if err != nil {
		run.reject(err)
		return outcome, err
	}
	outcome.TxRef = txRef
	outcome.Verified = true
	if err := run.advance(StateLedgerConfirmed, logrus.Fields{"tx_ref": txRef}); err != nil {
		return nil, err
	}

	unit := ""
	if standard, ok := w.catalog.Lookup(req.TestName); ok {
		unit = standard.Unit
	}
	submission := &domain.Submission{
		TestName:     req.TestName,
		Value:        value,
		Unit:         unit,
		Attestation:  *attestation,
		LedgerTxRef:  txRef,
		EpochSeconds: w.clock().Unix(),
		Verified:     true,
		StoredAt:     w.clock().UTC(),
	}

	// The ledger has confirmed; cancellation of the caller must not leave
	// the submission unrecorded.
	if err := w.store.Append(context.WithoutCancel(ctx), req.Identity, submission); err != nil {
		storeErr := domain.NewAttestationError(domain.ErrKindStore, "failed to record confirmed submission", err)
		run.reject(storeErr)
		return outcome, storeErr
	}
	outcome.Stored = true
	if err := run.advance(StateStored, nil); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (w *AttestationWorkflow) submit(ctx context.Context, identity string, commitment domain.Commitment) (domain.TxRef, error) {
	if w.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.submitTimeout)
		defer cancel()
	}

	txRef, err := w.ledger.Submit(ctx, domain.LedgerSubmission{
		Identity:        identity,
		AttestationHash: commitment.AttestationHash,
		MetadataHash:    commitment.MetadataHash,
		DataSource:      w.dataSource,
	})
	if err != nil {
		return "", domain.NewAttestationError(domain.ErrKindLedgerSubmit, "ledger submission failed", err)
	}
	return txRef, nil
}

// History returns the stored submissions of identity, optionally restricted
// to one test name, in insertion order.
func (w *AttestationWorkflow) History(ctx context.Context, identity, testName string) ([]*domain.Submission, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, domain.NewInputError("identity", "Missing required fields: identity")
	}
	submissions, err := w.store.List(ctx, identity)
	if err != nil {
		return nil, domain.NewAttestationError(domain.ErrKindStore, "failed to list submissions", err)
	}
	if testName == "" {
		return submissions, nil
	}
	filtered := make([]*domain.Submission, 0, len(submissions))
	for _, s := range submissions {
		if s.TestName == testName {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// Credentials reads the ledger credentials of identity. Nothing is cached.
func (w *AttestationWorkflow) Credentials(ctx context.Context, identity string) ([]domain.CredentialRecord, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, domain.NewInputError("identity", "Missing required fields: identity")
	}
	records, err := w.ledger.ReadCredentials(ctx, identity)
	if err != nil {
		return nil, domain.NewAttestationError(domain.ErrKindLedgerRead, "failed to read credentials", err)
	}
	if records == nil {
		records = []domain.CredentialRecord{}
	}
	return records, nil
}

// SetVerified sets the verified flag of one ledger credential.
func (w *AttestationWorkflow) SetVerified(ctx context.Context, identity string, index int, verified bool) (domain.TxRef, error) {
	if strings.TrimSpace(identity) == "" {
		return "", domain.NewInputError("identity", "Missing required fields: identity")
	}
	if index < 0 {
		return "", domain.NewInputError("index", "index must not be negative")
	}

	entry := w.logger.WithFields(logrus.Fields{
		"identity": identity,
		"index":    index,
		"verified": verified,
	})

	txRef, err := w.ledger.SetVerified(ctx, identity, index, verified)
	if err != nil {
		entry.WithError(err).Warn("Credential validation failed")
		return "", domain.NewAttestationError(domain.ErrKindLedgerSubmit, "credential validation failed", err)
	}
	entry.WithField("tx_ref", txRef).Info("Credential validation recorded")
	return txRef, nil
}

// ValidateRequest rejects requests with missing or malformed fields before
// any validation runs.
func ValidateRequest(req *domain.AttestationRequest) error {
	if req == nil {
		return domain.NewInputError("", "request body is required")
	}

	var missing []string
	if strings.TrimSpace(req.Identity) == "" {
		missing = append(missing, "identity")
	}
	if strings.TrimSpace(req.TestName) == "" {
		missing = append(missing, "testName")
	}
	if req.Value == nil {
		missing = append(missing, "value")
	}
	if strings.TrimSpace(req.PatientID) == "" {
		missing = append(missing, "patientId")
	}
	if len(missing) > 0 {
		return domain.NewInputError(strings.Join(missing, ","), "Missing required fields: "+strings.Join(missing, ", "))
	}

	if math.IsNaN(*req.Value) || math.IsInf(*req.Value, 0) {
		return domain.NewInputError("value", "value must be a finite number")
	}
	return nil
}
