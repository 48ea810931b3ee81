package store

import (
	"encoding/json"
	"fmt"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/pkg/canonical"
)

// encodeAttestation stores the attestation in its canonical form so that the
// persisted bytes hash to the committed attestation hash.
func encodeAttestation(a *domain.Attestation) (string, error) {
	b, err := canonical.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode attestation: %w", err)
	}
	return string(b), nil
}

func decodeAttestation(s string) (domain.Attestation, error) {
	var a domain.Attestation
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return a, fmt.Errorf("failed to decode attestation: %w", err)
	}
	return a, nil
}
