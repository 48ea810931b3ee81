package domain

import (
	"context"
)

// StandardsCatalog resolves test names to their reference standards
type StandardsCatalog interface {
	Lookup(testName string) (*MedicalStandard, bool)
	Classify(testName string, value float64) ([]string, error)
	List() []*MedicalStandard
}

// LedgerClient is the narrow contract the pipeline needs from the external trust ledger.
// Submit and SetVerified block until the transaction is final and are never retried.
type LedgerClient interface {
	Submit(ctx context.Context, submission LedgerSubmission) (TxRef, error)
	ReadCredentials(ctx context.Context, identity string) ([]CredentialRecord, error)
	SetVerified(ctx context.Context, identity string, index int, verified bool) (TxRef, error)
}

// SubmissionStore is the append-only index of finalized submissions per identity.
// List returns an empty slice, not an error, for unknown identities.
type SubmissionStore interface {
	Append(ctx context.Context, identity string, submission *Submission) error
	List(ctx context.Context, identity string) ([]*Submission, error)
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetLedgerConfig() *LedgerConfig
	GetStoreConfig() *StoreConfig
	GetDatabaseConfig() *DatabaseConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
