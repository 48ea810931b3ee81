package ledger

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/health-attestation-server/internal/domain"
)

// New builds the LedgerClient selected by cfg.Backend. The returned close
// function releases any resources the client holds.
func New(cfg domain.LedgerConfig, logger *logrus.Logger) (domain.LedgerClient, func() error, error) {
	switch cfg.Backend {
	case domain.LedgerBackendLocal:
		l, err := OpenLocal(cfg.Local, logger)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	case domain.LedgerBackendGateway:
		c, err := NewGatewayClient(cfg.Gateway, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}
}
