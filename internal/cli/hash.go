package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/service"
	"github.com/health-attestation-server/pkg/canonical"
)

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Recompute the commitment hashes of an attestation file",
		Long: `Recompute the attestation and metadata hashes of an attestation file.

The file may hold the attestation itself or any document with a top-level
"attestation" field, such as a stored submission or a server response.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			commitment, err := commitFile(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), commitment)
		},
	}
}

func newVerifyCommand() *cobra.Command {
	var attestationHash, metadataHash string

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check an attestation file against expected hashes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if attestationHash == "" && metadataHash == "" {
				return fmt.Errorf("at least one of --hash or --metadata-hash is required")
			}
			commitment, err := commitFile(args[0])
			if err != nil {
				return err
			}
			if err := matchHash("attestation", attestationHash, commitment.AttestationHash); err != nil {
				return err
			}
			if err := matchHash("metadata", metadataHash, commitment.MetadataHash); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s\n", commitment.AttestationHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&attestationHash, "hash", "", "expected attestation hash (0x-prefixed keccak256)")
	cmd.Flags().StringVar(&metadataHash, "metadata-hash", "", "expected metadata hash (0x-prefixed keccak256)")
	return cmd
}

func matchHash(name, expected, actual string) error {
	if expected == "" {
		return nil
	}
	want, err := canonical.ParseHash(expected)
	if err != nil {
		return fmt.Errorf("invalid expected %s hash: %w", name, err)
	}
	if want != actual {
		return fmt.Errorf("%s hash mismatch: expected %s, computed %s", name, want, actual)
	}
	return nil
}

func commitFile(path string) (*domain.Commitment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var envelope struct {
		Attestation json.RawMessage `json:"attestation"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	if len(envelope.Attestation) > 0 {
		data = envelope.Attestation
	}

	var attestation domain.Attestation
	if err := json.Unmarshal(data, &attestation); err != nil {
		return nil, fmt.Errorf("error parsing attestation: %w", err)
	}
	if attestation.TestName == "" || attestation.PatientID == "" {
		return nil, fmt.Errorf("%s does not contain an attestation", path)
	}
	return service.Commit(&attestation)
}
