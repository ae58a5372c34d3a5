package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSessionRepository stores snapshots as JSON values under
// <prefix><session id>, expiring after ttl of inactivity.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logger.Logger
}

func NewRedisSessionRepository(client *redis.Client, prefix string, ttl time.Duration, logger *logger.Logger) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisSessionRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(snapshot.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session snapshot: %w", err)
	}

	r.logger.WithContext(ctx).WithField("session_id", snapshot.ID).Debug("Stored session snapshot in Redis")
	return nil
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	var snapshot domain.SessionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) key(id string) string {
	return r.prefix + id
}
