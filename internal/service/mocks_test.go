package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/standards"
)

// MockLedgerClient is a mock implementation of the LedgerClient interface
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) Submit(ctx context.Context, submission domain.LedgerSubmission) (domain.TxRef, error) {
	args := m.Called(ctx, submission)
	return args.Get(0).(domain.TxRef), args.Error(1)
}

func (m *MockLedgerClient) ReadCredentials(ctx context.Context, identity string) ([]domain.CredentialRecord, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CredentialRecord), args.Error(1)
}

func (m *MockLedgerClient) SetVerified(ctx context.Context, identity string, index int, verified bool) (domain.TxRef, error) {
	args := m.Called(ctx, identity, index, verified)
	return args.Get(0).(domain.TxRef), args.Error(1)
}

// MockSubmissionStore is a mock implementation of the SubmissionStore interface
type MockSubmissionStore struct {
	mock.Mock
}

func (m *MockSubmissionStore) Append(ctx context.Context, identity string, submission *domain.Submission) error {
	args := m.Called(ctx, identity, submission)
	return args.Error(0)
}

func (m *MockSubmissionStore) List(ctx context.Context, identity string) ([]*domain.Submission, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Submission), args.Error(1)
}

func (m *MockSubmissionStore) Close() error {
	return m.Called().Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testAttestationConfig() domain.AttestationConfig {
	return domain.AttestationConfig{
		VerifiedBy:      "attestation-engine",
		Version:         "1.0",
		IdempotencyTTL:  time.Hour,
		IdempotencySize: 100,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func newTestWorkflow(ledger domain.LedgerClient, store domain.SubmissionStore) *AttestationWorkflow {
	return NewAttestationWorkflow(standards.Default(), ledger, store, WorkflowConfig{
		DataSource:    "attestation_engine_verified",
		SubmitTimeout: 5 * time.Second,
		Attestation:   testAttestationConfig(),
		Clock:         fixedClock,
	}, testLogger())
}

func floatPtr(v float64) *float64 { return &v }
