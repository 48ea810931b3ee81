// Package cli implements attestctl, the offline companion of the attestation
// service: catalog listing, range checks, independent hash verification,
// local ledger inspection and submission store migrations.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/health-attestation-server/internal/config"
	"github.com/health-attestation-server/internal/domain"
)

type options struct {
	cfgFile string
	manager *config.Manager
}

// NewRootCommand builds the attestctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "attestctl",
		Short: "Inspect and verify health measurement attestations",
		Long: `attestctl works against the same configuration as the attestation server.

Hashes are recomputed from the canonical attestation encoding, so an
attestation file can be checked against a ledger credential without
trusting the server that produced it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml, /etc/health-attestation/config.yaml)")

	root.AddCommand(
		newStandardsCommand(),
		newValidateCommand(),
		newHashCommand(),
		newVerifyCommand(),
		newCredentialsCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

// Execute runs attestctl
func Execute() error {
	return NewRootCommand().Execute()
}

// config loads configuration on first use; commands that never touch it run
// without a config file.
func (o *options) config() (*domain.Config, error) {
	if o.manager == nil {
		m, err := config.NewManagerWithFile(o.cfgFile)
		if err != nil {
			return nil, err
		}
		o.manager = m
	}
	return o.manager.GetConfig(), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	return nil
}
