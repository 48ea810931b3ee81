package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/health-attestation-server/internal/domain"
)

// SQLiteStore persists submissions in a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database at dbPath, creating the file and schema
// if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	store := NewSQLiteStoreFromDB(db)
	store.dbPath = dbPath
	return store, nil
}

// NewSQLiteStoreFromDB wraps an open database whose schema already exists.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identity TEXT NOT NULL,
		test_name TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		attestation TEXT NOT NULL,
		ledger_tx_ref TEXT NOT NULL,
		epoch_seconds INTEGER NOT NULL,
		verified INTEGER NOT NULL DEFAULT 0,
		stored_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_identity ON submissions(identity, id);
	`

	_, err := db.Exec(schema)
	return err
}

// Append inserts submission at the end of identity's list.
func (s *SQLiteStore) Append(ctx context.Context, identity string, submission *domain.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is required")
	}
	attestation, err := encodeAttestation(&submission.Attestation)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			identity, test_name, value, unit, attestation,
			ledger_tx_ref, epoch_seconds, verified, stored_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		identity,
		submission.TestName,
		submission.Value,
		submission.Unit,
		attestation,
		string(submission.LedgerTxRef),
		submission.EpochSeconds,
		submission.Verified,
		submission.StoredAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// List returns identity's submissions in insertion order.
func (s *SQLiteStore) List(ctx context.Context, identity string) ([]*domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_name, value, unit, attestation,
			ledger_tx_ref, epoch_seconds, verified, stored_at
		FROM submissions
		WHERE identity = ?
		ORDER BY id ASC
	`, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := []*domain.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
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

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(s scanner) (*domain.Submission, error) {
	sub := &domain.Submission{}
	var attestation, txRef string
	var storedAt int64

	err := s.Scan(
		&sub.TestName, &sub.Value, &sub.Unit, &attestation,
		&txRef, &sub.EpochSeconds, &sub.Verified, &storedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Attestation, err = decodeAttestation(attestation)
	if err != nil {
		return nil, err
	}
	sub.LedgerTxRef = domain.TxRef(txRef)
	sub.StoredAt = time.Unix(0, storedAt).UTC()
	return sub, nil
}
