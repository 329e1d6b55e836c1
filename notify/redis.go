package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/ingame-bot/presence"
)

const (
	stateKeyPrefix = "ingame:state:"
	eventsChannel  = "ingame:events"
)

// RedisObserver stores the latest transition under ingame:state:<name#tag> and publishes it on
// ingame:events. Keys carry no TTL; the value is the last known state.
type RedisObserver struct {
	client *redis.Client
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	slog.Info("connected to redis", slog.String("addr", opt.Addr), slog.Int("db", opt.DB), slog.String("component", "notify"))
	return client, nil
}

// NewRedisObserver wraps an existing client.
func NewRedisObserver(client *redis.Client) *RedisObserver {
	return &RedisObserver{client: client}
}

// StateKey is the key holding the latest event for an identity.
func StateKey(id presence.TrackedIdentity) string {
	return stateKeyPrefix + strings.ToLower(id.String())
}

// EventsChannel is the pub/sub channel every event is published on.
func EventsChannel() string { return eventsChannel }

func (r *RedisObserver) Observe(ctx context.Context, t presence.Transition) error {
	data, err := NewEvent(t).marshal()
	if err != nil {
		return fmt.Errorf("marshal presence event: %w", err)
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, StateKey(t.Identity), data, 0)
	pipe.Publish(ctx, eventsChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish presence: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *RedisObserver) Close() error { return r.client.Close() }
