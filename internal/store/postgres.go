package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-attestation-server/internal/domain"
)

// PostgresStore persists submissions in PostgreSQL. The schema is created by
// the migrations under migrations/.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresStore creates a store over an existing pool
func NewPostgresStore(pool *pgxpool.Pool, logger *logrus.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Append inserts submission at the end of identity's list.
func (s *PostgresStore) Append(ctx context.Context, identity string, submission *domain.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is required")
	}
	attestation, err := encodeAttestation(&submission.Attestation)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions (
			identity, test_name, value, unit, attestation,
			ledger_tx_ref, epoch_seconds, verified, stored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err = s.pool.QueryRow(ctx, query,
		identity,
		submission.TestName,
		submission.Value,
		submission.Unit,
		attestation,
		string(submission.LedgerTxRef),
		submission.EpochSeconds,
		submission.Verified,
		submission.StoredAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"identity":  identity,
		"id":        id,
		"test_name": submission.TestName,
	}).Debug("Submission stored")
	return nil
}

// List returns identity's submissions in insertion order.
func (s *PostgresStore) List(ctx context.Context, identity string) ([]*domain.Submission, error) {
	query := `
		SELECT test_name, value, unit, attestation,
			ledger_tx_ref, epoch_seconds, verified, stored_at
		FROM submissions
		WHERE identity = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := []*domain.Submission{}
	for rows.Next() {
		sub, err := scanPgSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return submissions, nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgSubmission(row pgx.Row) (*domain.Submission, error) {
	sub := &domain.Submission{}
	var attestation, txRef string

	err := row.Scan(
		&sub.TestName, &sub.Value, &sub.Unit, &attestation,
		&txRef, &sub.EpochSeconds, &sub.Verified, &sub.StoredAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Attestation, err = decodeAttestation(attestation)
	if err != nil {
		return nil, err
	}
	sub.LedgerTxRef = domain.TxRef(txRef)
	sub.StoredAt = sub.StoredAt.UTC()
	return sub, nil
}
