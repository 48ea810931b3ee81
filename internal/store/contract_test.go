package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/pkg/canonical"
)

func testSubmission(testName string, value float64) *domain.Submission {
	possible := domain.StandardRange{Min: 20, Max: 600}
	createdAt := canonical.NewTime(time.Date(2024, 3, 1, 12, 0, 0, 123000000, time.UTC))
	return &domain.Submission{
		TestName: testName,
		Value:    value,
		Unit:     "mg/dL",
		Attestation: domain.Attestation{
			TestName:        testName,
			Value:           value,
			PatientID:       "patient-1",
			CreatedAt:       createdAt,
			EpochSeconds:    createdAt.Unix(),
			RangeCheck:      domain.RangeCheck{Passed: true, PossibleRange: &possible},
			AllChecksPassed: true,
			VerifiedBy:      "attestation-engine",
			Version:         "1.0",
		},
		LedgerTxRef:  "0xtx",
		EpochSeconds: createdAt.Unix(),
		Verified:     true,
		StoredAt:     time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC),
	}
}

// runStoreContract exercises the behaviour every SubmissionStore shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) domain.SubmissionStore) {
	ctx := context.Background()

	t.Run("Unknown_Identity_Is_Empty", func(t *testing.T) {
		s := newStore(t)
		list, err := s.List(ctx, "0xnobody")
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("Preserves_Insertion_Order", func(t *testing.T) {
		s := newStore(t)
		for i, v := range []float64{95, 101.5, 88} {
			sub := testSubmission("Blood Glucose", v)
			sub.LedgerTxRef = domain.TxRef(fmt.Sprintf("0xtx%d", i))
			require.NoError(t, s.Append(ctx, "0xpatient", sub))
		}
		require.NoError(t, s.Append(ctx, "0xother", testSubmission("Heart Rate", 70)))

		list, err := s.List(ctx, "0xpatient")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, 95.0, list[0].Value)
		assert.Equal(t, 101.5, list[1].Value)
		assert.Equal(t, 88.0, list[2].Value)
		assert.Equal(t, domain.TxRef("0xtx2"), list[2].LedgerTxRef)

		other, err := s.List(ctx, "0xother")
		require.NoError(t, err)
		require.Len(t, other, 1)
		assert.Equal(t, "Heart Rate", other[0].TestName)
	})

	t.Run("Round_Trips_Attestation", func(t *testing.T) {
		s := newStore(t)
		sub := testSubmission("Blood Glucose", 95)
		want, err := canonical.Hash(&sub.Attestation)
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, "0xpatient", sub))
		list, err := s.List(ctx, "0xpatient")
		require.NoError(t, err)
		require.Len(t, list, 1)

		got, err := canonical.Hash(&list[0].Attestation)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, "mg/dL", list[0].Unit)
		assert.True(t, list[0].Verified)
		assert.Equal(t, sub.EpochSeconds, list[0].EpochSeconds)
		assert.True(t, sub.StoredAt.Equal(list[0].StoredAt))
	})

	t.Run("Concurrent_Appends_Same_Identity", func(t *testing.T) {
		s := newStore(t)
		const n = 50

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sub := testSubmission("Blood Glucose", float64(i))
				assert.NoError(t, s.Append(ctx, "0xpatient", sub))
			}(i)
		}
		wg.Wait()

		list, err := s.List(ctx, "0xpatient")
		require.NoError(t, err)
		require.Len(t, list, n)

		seen := make(map[float64]bool, n)
		for _, sub := range list {
			assert.False(t, seen[sub.Value], "duplicate value %v", sub.Value)
			seen[sub.Value] = true
		}
		assert.Len(t, seen, n)
	})

	t.Run("Rejects_Nil_Submission", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.Append(ctx, "0xpatient", nil))
	})
}
