package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// SchemaVersion describes where the submission store schema currently stands.
type SchemaVersion struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	// Empty is set when no migration has ever been applied.
	Empty bool `json:"empty"`
}

// SchemaMigrator applies the submission store migrations found under a
// directory to one postgres database.
type SchemaMigrator struct {
	m      *migrate.Migrate
	logger *logrus.Logger
}

// OpenSchemaMigrator opens the migration source at migrationsPath against databaseURL.
func OpenSchemaMigrator(databaseURL, migrationsPath string, logger *logrus.Logger) (*SchemaMigrator, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening migrations at %s: %w", migrationsPath, err)
	}
	return &SchemaMigrator{m: m, logger: logger}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (s *SchemaMigrator) Up() (SchemaVersion, error) {
	if err := s.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{}, fmt.Errorf("applying migrations: %w", err)
	}
	return s.report("Submission store schema is up to date")
}

// Down rolls back at most steps migrations.
func (s *SchemaMigrator) Down(steps int) (SchemaVersion, error) {
	if steps <= 0 {
		return SchemaVersion{}, fmt.Errorf("steps must be positive, got %d", steps)
	}
	err := s.m.Steps(-steps)
	var short migrate.ErrShortLimit
	switch {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
	case errors.As(err, &short):
		// fewer migrations applied than requested; all of them are gone now
	default:
		return SchemaVersion{}, fmt.Errorf("rolling back %d migrations: %w", steps, err)
	}
	return s.report("Submission store schema rolled back")
}

// Version reports the applied schema version.
func (s *SchemaMigrator) Version() (SchemaVersion, error) {
	v, dirty, err := s.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{Empty: true}, nil
	}
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("reading schema version: %w", err)
	}
	return SchemaVersion{Version: v, Dirty: dirty}, nil
}

func (s *SchemaMigrator) report(msg string) (SchemaVersion, error) {
	sv, err := s.Version()
	if err != nil {
		return sv, err
	}
	s.logger.WithFields(logrus.Fields{
		"version": sv.Version,
		"dirty":   sv.Dirty,
	}).Info(msg)
	return sv, nil
}

// Close releases the migration source and database handles.
func (s *SchemaMigrator) Close() error {
	sourceErr, dbErr := s.m.Close()
	return errors.Join(sourceErr, dbErr)
}

// Migrate brings the schema at databaseURL up to date and closes the migrator.
func Migrate(databaseURL, migrationsPath string, logger *logrus.Logger) error {
	s, err := OpenSchemaMigrator(databaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close schema migrator")
		}
	}()
	_, err = s.Up()
	return err
}
