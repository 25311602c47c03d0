package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// StreamEvents is the Redis stream carrying giveaway audit events.
const StreamEvents = "giveaways.events"

// ConnectRedis parses url and pings the server. An empty url disables Redis
// and returns a nil client.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// PublishMessage appends payload to the events stream.
func PublishMessage(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	if rdb == nil {
		return nil
	}
	values := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch v.(type) {
		case []string, map[string]interface{}:
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			values[k] = string(b)
		default:
			values[k] = v
		}
	}
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamEvents,
		MaxLen: 10000,
		Approx: true,
		Values: values,
	}).Result()
	return err
}

// StreamSink publishes audit events to the Redis stream.
type StreamSink struct {
	RDB    *redis.Client
	Source string
}

// Emit implements the lifecycle event sink.
func (s StreamSink) Emit(ctx context.Context, kind, giveawayID string, fields map[string]interface{}) error {
	payload := map[string]interface{}{
		"kind":        kind,
		"giveaway_id": giveawayID,
		"source":      s.Source,
	}
	for k, v := range fields {
		payload[k] = v
	}
	return PublishMessage(ctx, s.RDB, payload)
}
