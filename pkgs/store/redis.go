package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
)

const replayKeyPrefix = "replay:"

// DefaultReplayTTL is how long a claimed replay token stays held.
const DefaultReplayTTL = 300 * time.Second

// ReplayStore claims single-use replay tokens in Redis. Atomicity comes from
// SETNX: of any number of concurrent claims on one token, Redis answers true
// to exactly one.
type ReplayStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReplayStore(client *redis.Client, ttl time.Duration) *ReplayStore {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &ReplayStore{client: client, ttl: ttl}
}

// Claim marks the token as used. Returns false when the token is already
// held. The expiry is applied in a second round trip; if that trip fails the
// token simply stays claimed longer than the configured window, so the
// failure is logged and swallowed rather than surfaced as a claim error.
func (s *ReplayStore) Claim(ctx context.Context, token string) (bool, error) {
	key := replayKeyPrefix + token
	claimed, err := s.client.SetNX(ctx, key, 1, 0).Result()
	if err != nil {
		return false, errors.Wrap(err, "setnx replay token")
	}
	if !claimed {
		return false, nil
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		log.Errorf("Failed to set expiry on %s: %v", key, err)
	}
	return true, nil
}

// Ping reports whether Redis is reachable.
func (s *ReplayStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// NewRedisClient dials Redis and verifies connectivity before returning.
// The probe retries with fibonacci backoff and jitter so a replay store that
// is still coming up alongside the server does not fail the boot.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)

	backoff := retry.NewFibonacci(100 * time.Millisecond)
	backoff = retry.WithMaxRetries(5, backoff)
	backoff = retry.WithJitter(50*time.Millisecond, backoff)

	operation := func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Debugln("redis not reachable yet: ", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	}

	if err := retry.Do(ctx, backoff, operation); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}
