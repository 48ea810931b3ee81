// Package app assembles the attestation workflow from configuration for the
// service entry points.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/ledger"
	"github.com/health-attestation-server/internal/service"
	"github.com/health-attestation-server/internal/standards"
	"github.com/health-attestation-server/internal/store"
)

// App holds the workflow and the resources backing it
type App struct {
	Workflow *service.AttestationWorkflow

	closeLedger func() error
	store       domain.SubmissionStore
	logger      *logrus.Logger
}

// New opens the configured ledger and store and builds the workflow over the
// default standards catalog.
func New(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger) (*App, error) {
	cfg := configManager.GetConfig()

	ledgerClient, closeLedger, err := ledger.New(cfg.Ledger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	submissionStore, err := store.Open(ctx, cfg, configManager.GetDatabaseConnectionString(), logger)
	if err != nil {
		closeLedger()
		return nil, fmt.Errorf("failed to open submission store: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"ledger_backend": cfg.Ledger.Backend,
		"store_backend":  cfg.Store.Backend,
		"data_source":    cfg.Ledger.DataSource,
	}).Info("Attestation workflow initialized")

	return &App{
		Workflow:    service.NewAttestationWorkflow(standards.Default(), ledgerClient, submissionStore, service.WorkflowConfigFrom(cfg), logger),
		closeLedger: closeLedger,
		store:       submissionStore,
		logger:      logger,
	}, nil
}

// Close releases the store and the ledger
func (a *App) Close() error {
	return errors.Join(a.store.Close(), a.closeLedger())
}
