package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentrelay/core"
)

// RedisStoreOptions configures NewRedisStore.
type RedisStoreOptions struct {
	// Prefix is prepended to every key. Keys look like <prefix>session:<id>.
	Prefix string
	// TTL expires idle sessions. 0 keeps them forever.
	TTL time.Duration
}

// RedisStore keeps sessions as JSON documents in Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store on top of an existing client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{
		Prefix: "agentrelay:",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RedisStore{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + "session:" + id
}

// Get loads and decodes the session.
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
		}

		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}

	return &sess, nil
}

// Save encodes and stores the session, refreshing its TTL.
func (s *RedisStore) Save(ctx context.Context, sess *core.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}

	if err := s.client.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
