package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/ledger"
)

type credentialView struct {
	domain.CredentialRecord
	Recent bool `json:"recent"`
}

func newCredentialsCommand(opts *options) *cobra.Command {
	var ledgerPath string

	cmd := &cobra.Command{
		Use:   "credentials <identity>",
		Short: "List the credentials of an identity in the embedded ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			local := cfg.Ledger.Local
			if cmd.Flags().Changed("ledger-path") {
				local.Path = ledgerPath
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(logrus.WarnLevel)

			l, err := ledger.OpenLocal(local, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			ctx := context.Background()
			records, err := l.ReadCredentials(ctx, args[0])
			if err != nil {
				return err
			}

			views := make([]credentialView, 0, len(records))
			for _, r := range records {
				recent, err := l.IsCredentialRecent(ctx, args[0], r.Index)
				if err != nil {
					return err
				}
				views = append(views, credentialView{CredentialRecord: r, Recent: recent})
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"identity":    args[0],
				"count":       len(views),
				"credentials": views,
			})
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger-path", "", "path of the embedded ledger (default: ledger.local.path)")
	return cmd
}
