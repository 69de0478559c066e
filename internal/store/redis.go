package store

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"
    "time"

    goredis "github.com/redis/go-redis/v9"

    "ephemera/internal/events"
)

const defaultDialTimeout = 5 * time.Second

// RedisStore persists snapshots as JSON values in Redis.
type RedisStore struct {
    client *goredis.Client
}

// OpenRedis connects from a URL and pings before returning.
func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
    if redisURL == "" {
        return nil, fmt.Errorf("redis url is required")
    }
    opts, err := goredis.ParseURL(redisURL)
    if err != nil {
        return nil, fmt.Errorf("parse redis url: %w", err)
    }
    if opts.DialTimeout == 0 {
        opts.DialTimeout = defaultDialTimeout
    }
    if opts.ReadTimeout == 0 {
        opts.ReadTimeout = defaultDialTimeout
    }
    if opts.WriteTimeout == 0 {
        opts.WriteTimeout = defaultDialTimeout
    }
    client := goredis.NewClient(opts)
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("ping redis: %w", err)
    }
    return &RedisStore{client: client}, nil
}

func (s *RedisStore) GetSnapshot(ctx context.Context) (events.Snapshot, error) {
    var snap events.Snapshot
    err := s.getJSON(ctx, EventsKey, &snap)
    return snap, err
}

func (s *RedisStore) SetSnapshot(ctx context.Context, snap events.Snapshot) error {
    return s.setJSON(ctx, EventsKey, snap)
}

func (s *RedisStore) GetStatus(ctx context.Context) (events.Status, error) {
    var status events.Status
    err := s.getJSON(ctx, StatusKey, &status)
    return status, err
}

func (s *RedisStore) SetStatus(ctx context.Context, status events.Status) error {
    return s.setJSON(ctx, StatusKey, status)
}

func (s *RedisStore) DeleteStatus(ctx context.Context) error {
    return s.client.Del(ctx, StatusKey).Err()
}

func (s *RedisStore) GetLastCompleted(ctx context.Context) (time.Time, error) {
    raw, err := s.client.Get(ctx, LastCompletedKey).Result()
    if err == goredis.Nil {
        return time.Time{}, ErrNotFound
    }
    if err != nil {
        return time.Time{}, err
    }
    millis, err := strconv.ParseInt(raw, 10, 64)
    if err != nil {
        return time.Time{}, fmt.Errorf("parse lastCompleted: %w", err)
    }
    return time.UnixMilli(millis).UTC(), nil
}

func (s *RedisStore) SetLastCompleted(ctx context.Context, t time.Time) error {
    return s.client.Set(ctx, LastCompletedKey, strconv.FormatInt(t.UnixMilli(), 10), 0).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
    return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
    raw, err := s.client.Get(ctx, key).Bytes()
    if err == goredis.Nil {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    return json.Unmarshal(raw, v)
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
    buf, err := json.Marshal(v)
    if err != nil {
        return err
    }
    return s.client.Set(ctx, key, buf, 0).Err()
}
