package thumbstore

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis keeps each session's thumbnails in one hash, so Release is a single DEL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL. Hashes expire after ttl unless refreshed by a Put;
// ttl <= 0 disables expiry.
func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: c, ttl: ttl}, nil
}

func (r *Redis) key(sessionID string) string { return fmt.Sprintf("session:%s:thumbs", sessionID) }

func (r *Redis) Put(ctx context.Context, sessionID, key string, data []byte) error {
	k := r.key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k, key, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := r.client.HGet(ctx, r.key(sessionID), key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *Redis) Release(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

func (r *Redis) Close() error { return r.client.Close() }

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }
