package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/health-attestation-server/internal/database"
)

type migrateFlags struct {
	databaseURL string
	path        string
}

func newMigrateCommand(opts *options) *cobra.Command {
	flags := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres submission store schema",
		Long: `migrate applies or rolls back the submission store migrations.

The database and the migrations directory default to the database section of
the configuration; --database-url and --path override them.`,
	}
	cmd.PersistentFlags().StringVar(&flags.databaseURL, "database-url", "", "postgres URL (default: built from the database config section)")
	cmd.PersistentFlags().StringVar(&flags.path, "path", "", "migrations directory (default: database.migrations_path)")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, opts, flags, func(m *database.SchemaMigrator) (database.SchemaVersion, error) {
				return m.Down(steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.PreRunE = func(cmd *cobra.Command, args []string) error {
		if steps <= 0 {
			return fmt.Errorf("--steps must be positive, got %d", steps)
		}
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, opts, flags, (*database.SchemaMigrator).Up)
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, opts, flags, (*database.SchemaMigrator).Version)
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, opts *options, flags *migrateFlags, fn func(*database.SchemaMigrator) (database.SchemaVersion, error)) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	dsn := flags.databaseURL
	if dsn == "" {
		dsn = opts.manager.GetDatabaseConnectionString()
	}
	path := flags.path
	if path == "" {
		path = cfg.Database.MigrationsPath
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(logrus.WarnLevel)

	m, err := database.OpenSchemaMigrator(dsn, path, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close schema migrator")
		}
	}()

	sv, err := fn(m)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), sv)
}
