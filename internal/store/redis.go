package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/health-attestation-server/internal/domain"
)

// RedisStore keeps each identity's submissions in a Redis list. RPUSH is
// atomic, so concurrent appends from any number of processes are totally
// ordered without client-side locking.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// redisSubmission is the stored form; the attestation is kept in canonical
// bytes so it re-hashes to the committed value.
type redisSubmission struct {
	TestName     string          `json:"testName"`
	Value        float64         `json:"value"`
	Unit         string          `json:"unit"`
	Attestation  json.RawMessage `json:"attestation"`
	LedgerTxRef  string          `json:"ledgerTxRef"`
	EpochSeconds int64           `json:"epochSeconds"`
	Verified     bool            `json:"verified"`
	StoredAt     time.Time       `json:"storedAt"`
}

// NewRedisStore connects to the Redis server at redisURL
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "health-attest"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(identity string) string {
	return fmt.Sprintf("%s:submissions:%s", s.prefix, identity)
}

// Append pushes submission onto identity's list.
func (s *RedisStore) Append(ctx context.Context, identity string, submission *domain.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is required")
	}
	attestation, err := encodeAttestation(&submission.Attestation)
	if err != nil {
		return err
	}

	data, err := json.Marshal(redisSubmission{
		TestName:     submission.TestName,
		Value:        submission.Value,
		Unit:         submission.Unit,
		Attestation:  json.RawMessage(attestation),
		LedgerTxRef:  string(submission.LedgerTxRef),
		EpochSeconds: submission.EpochSeconds,
		Verified:     submission.Verified,
		StoredAt:     submission.StoredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	if err := s.client.RPush(ctx, s.key(identity), data).Err(); err != nil {
		return fmt.Errorf("failed to append submission: %w", err)
	}
	return nil
}

// List returns identity's submissions in insertion order.
func (s *RedisStore) List(ctx context.Context, identity string) ([]*domain.Submission, error) {
	values, err := s.client.LRange(ctx, s.key(identity), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	submissions := make([]*domain.Submission, 0, len(values))
	for _, v := range values {
		var stored redisSubmission
		if err := json.Unmarshal([]byte(v), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode submission: %w", err)
		}
		attestation, err := decodeAttestation(string(stored.Attestation))
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, &domain.Submission{
			TestName:     stored.TestName,
			Value:        stored.Value,
			Unit:         stored.Unit,
			Attestation:  attestation,
			LedgerTxRef:  domain.TxRef(stored.LedgerTxRef),
			EpochSeconds: stored.EpochSeconds,
			Verified:     stored.Verified,
			StoredAt:     stored.StoredAt,
		})
	}
	return submissions, nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
