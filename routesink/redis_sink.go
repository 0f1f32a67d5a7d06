package routesink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/everyday-items/flowkit/flog"
)

// RedisListSink RPUSHes every routed item onto a Redis list, json-encoded
// by default. It implements router.Sender[T]. Taking redis.UniversalClient
// means the same sink covers a standalone client, a sentinel-backed
// client, or a cluster client without caring which.
type RedisListSink[T any] struct {
	client redis.UniversalClient
	key    string
	encode func(T) ([]byte, error)
	log    flog.Logger
}

// RedisOption configures a RedisListSink.
type RedisOption[T any] func(*RedisListSink[T])

// WithRedisEncoder overrides the default json.Marshal encoding.
func WithRedisEncoder[T any](encode func(T) ([]byte, error)) RedisOption[T] {
	return func(s *RedisListSink[T]) { s.encode = encode }
}

// WithRedisLogger attaches a logger for delivery failures.
func WithRedisLogger[T any](l flog.Logger) RedisOption[T] {
	return func(s *RedisListSink[T]) { s.log = l }
}

// NewRedisListSink builds a sink that pushes onto key.
func NewRedisListSink[T any](client redis.UniversalClient, key string, opts ...RedisOption[T]) *RedisListSink[T] {
	s := &RedisListSink[T]{
		client: client,
		key:    key,
		encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		log:    flog.Noop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements router.Sender[T].
func (s *RedisListSink[T]) Send(v T) {
	ctx := context.Background()
	data, err := s.encode(v)
	if err != nil {
		s.log.Warn(ctx, "routesink: redis encode failed", flog.String("key", s.key), flog.Err(err))
		return
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		s.log.Warn(ctx, "routesink: redis rpush failed", flog.String("key", s.key), flog.Err(err))
	}
}
