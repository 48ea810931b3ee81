package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-attestation-server/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) domain.SubmissionStore {
		return NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sub := testSubmission("Blood Glucose", 95)
	require.NoError(t, s.Append(ctx, "0xpatient", sub))
	sub.Value = 1

	list, err := s.List(ctx, "0xpatient")
	require.NoError(t, err)
	list[0].Value = 2

	again, err := s.List(ctx, "0xpatient")
	require.NoError(t, err)
	assert.Equal(t, 95.0, again[0].Value)
}

func TestMemoryStore_ConcurrentIdentities(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const identities, perIdentity = 10, 20
	var wg sync.WaitGroup
	for i := 0; i < identities; i++ {
		for j := 0; j < perIdentity; j++ {
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				assert.NoError(t, s.Append(ctx, fmt.Sprintf("0x%02d", i), testSubmission("Heart Rate", float64(j))))
			}(i, j)
		}
	}
	wg.Wait()

	for i := 0; i < identities; i++ {
		list, err := s.List(ctx, fmt.Sprintf("0x%02d", i))
		require.NoError(t, err)
		assert.Len(t, list, perIdentity)
	}
	assert.NoError(t, s.Close())
}
