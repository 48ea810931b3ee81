package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-attestation-server/internal/domain"
)

// getTestRedis returns a client for TEST_REDIS_URL and skips when it is unset.
func getTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}
	opt, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisStore(t *testing.T) {
	client := getTestRedis(t)
	defer client.Close()

	runStoreContract(t, func(t *testing.T) domain.SubmissionStore {
		prefix := fmt.Sprintf("health-attest-test-%d", time.Now().UnixNano())
		t.Cleanup(func() {
			ctx := context.Background()
			keys, err := client.Keys(ctx, prefix+":*").Result()
			if err == nil && len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		})
		return NewRedisStoreFromClient(client, prefix)
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer s.Close()
	assert.Equal(t, "health-attest:submissions:0xabc", s.key("0xabc"))
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", "p")
	assert.Error(t, err)
}
