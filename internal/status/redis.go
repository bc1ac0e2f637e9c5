package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis stores export status in a hash per session, shared across replicas.
type Redis struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

// connectTimeout bounds the ping NewRedis uses to verify the connection.
const connectTimeout = 3 * time.Second

// NewRedis connects to redisURL and fails if Redis does not answer a ping
// within connectTimeout. Commands honour their context deadlines.
func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.ContextTimeoutEnabled = true
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: c, keyNS: "session", ttl: ttl}, nil
}

func (s *Redis) key(sessionID string) string { return fmt.Sprintf("%s:%s:export", s.keyNS, sessionID) }

func (s *Redis) Set(ctx context.Context, sessionID string, st Status) error {
	m := map[string]interface{}{
		"export_id": st.ExportID,
		"state":     st.State,
		"mode":      st.Mode,
		"message":   st.Message,
		"start":     "",
		"end":       "",
		"metadata":  "",
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, err := json.Marshal(st.Metadata)
		if err != nil {
			return fmt.Errorf("encode status metadata: %w", err)
		}
		m["metadata"] = string(b)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(sessionID), m)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(sessionID), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Redis) Get(ctx context.Context, sessionID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	st := Status{
		ExportID: res["export_id"],
		State:    res["state"],
		Mode:     res["mode"],
		Message:  res["message"],
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st, true, nil
}

func (s *Redis) Release(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *Redis) Close() error { return s.client.Close() }

// Ping checks the Redis connection.
func (s *Redis) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }
