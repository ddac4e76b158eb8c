package news

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const newsStream = "neighborhood:news"

// RedisSink publishes news events to a Redis stream so other processes can
// follow the neighborhood feed.
type RedisSink struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(redisURL string, logger *zap.Logger) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis news sink connected", zap.String("stream", newsStream))
	return &RedisSink{rdb: rdb, logger: logger}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Post(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: newsStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", newsStream, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
