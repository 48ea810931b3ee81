package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-attestation-server/internal/config"
	"github.com/health-attestation-server/internal/domain"
)

func TestNew_LocalLedgerSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	body := "ledger:\n" +
		"  backend: local\n" +
		"  local:\n" +
		"    path: " + filepath.Join(dir, "ledger") + "\n" +
		"    owner: \"0xowner\"\n" +
		"    signer: \"0xowner\"\n" +
		"store:\n" +
		"  backend: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "submissions.db") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cm, err := config.NewManagerWithFile(path)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	a, err := New(context.Background(), cm, logger)
	require.NoError(t, err)

	outcome, err := a.Workflow.VerifyAndSubmit(context.Background(), &domain.AttestationRequest{
		Identity:  "0xpatient",
		TestName:  "Total Cholesterol",
		Value:     func() *float64 { v := 180.0; return &v }(),
		PatientID: "patient-1",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Stored)

	creds, err := a.Workflow.Credentials(context.Background(), "0xpatient")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, outcome.AttestationHash, creds[0].AttestationHash)
	assert.False(t, creds[0].Verified)

	history, err := a.Workflow.History(context.Background(), "0xpatient", "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, outcome.TxRef, history[0].LedgerTxRef)

	require.NoError(t, a.Close())
}

func TestNew_UnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  backend: ethereum\n"), 0o644))
	cm, err := config.NewManagerWithFile(path)
	require.NoError(t, err)

	_, err = New(context.Background(), cm, logrus.New())
	assert.ErrorContains(t, err, "unknown ledger backend")
}
