package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/health-attestation-server/internal/domain"
)

// IdempotencyGuard collapses concurrent duplicate requests sharing a key
// into one execution and replays successful outcomes for a bounded window.
// Each key is bound to the fingerprint of the request that first used it; a
// later or concurrent request with another fingerprint is rejected rather
// than handed someone else's outcome. Failures are never remembered, so a
// failed request can be retried with the same key.
type IdempotencyGuard struct {
	inflight  singleflight.Group
	completed *expirable.LRU[string, idempotentEntry]
}

type idempotentEntry struct {
	fingerprint string
	outcome     *domain.VerificationOutcome
}

// NewIdempotencyGuard creates a guard remembering at most size outcomes for ttl
func NewIdempotencyGuard(size int, ttl time.Duration) *IdempotencyGuard {
	if size <= 0 {
		size = 1
	}
	return &IdempotencyGuard{
		completed: expirable.NewLRU[string, idempotentEntry](size, nil, ttl),
	}
}

// Do runs fn once per key. The returned outcome is a copy flagged Replayed
// when it was produced by an earlier or concurrent call. A call whose
// fingerprint differs from the one the key is bound to fails with an
// idempotency conflict and never runs fn.
func (g *IdempotencyGuard) Do(key, fingerprint string, fn func() (*domain.VerificationOutcome, error)) (*domain.VerificationOutcome, error) {
	if entry, ok := g.completed.Get(key); ok {
		if entry.fingerprint != fingerprint {
			return nil, domain.NewIdempotencyConflictError()
		}
		return replay(entry.outcome), nil
	}

	ran := false
	v, err, _ := g.inflight.Do(key, func() (interface{}, error) {
		if entry, ok := g.completed.Get(key); ok {
			return entry, nil
		}
		ran = true
		outcome, err := fn()
		entry := idempotentEntry{fingerprint: fingerprint, outcome: outcome}
		if err == nil && outcome != nil {
			g.completed.Add(key, entry)
		}
		return entry, err
	})

	entry, _ := v.(idempotentEntry)
	if ran {
		return entry.outcome, err
	}
	if entry.fingerprint != fingerprint {
		return nil, domain.NewIdempotencyConflictError()
	}
	if entry.outcome != nil {
		return replay(entry.outcome), err
	}
	return nil, err
}

// Len reports how many outcomes are currently remembered.
func (g *IdempotencyGuard) Len() int {
	return g.completed.Len()
}

func replay(outcome *domain.VerificationOutcome) *domain.VerificationOutcome {
	cp := *outcome
	cp.Replayed = true
	return &cp
}
