package routesink

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/everyday-items/flowkit/flog"
)

// AsynqSink enqueues every routed item as an asynq task, typed by
// taskType and delivered to queue: a json payload plus asynq.Option knobs
// handed to an *asynq.Client.
type AsynqSink[T any] struct {
	client   *asynq.Client
	taskType string
	queue    string
	encode   func(T) ([]byte, error)
	log      flog.Logger
}

// AsynqSinkOption configures an AsynqSink.
type AsynqSinkOption[T any] func(*AsynqSink[T])

// WithAsynqEncoder overrides the default json.Marshal encoding.
func WithAsynqEncoder[T any](encode func(T) ([]byte, error)) AsynqSinkOption[T] {
	return func(s *AsynqSink[T]) { s.encode = encode }
}

// WithAsynqLogger attaches a logger for enqueue failures.
func WithAsynqLogger[T any](l flog.Logger) AsynqSinkOption[T] {
	return func(s *AsynqSink[T]) { s.log = l }
}

// NewAsynqSink builds a sink that enqueues onto queue as taskType tasks.
func NewAsynqSink[T any](client *asynq.Client, taskType, queue string, opts ...AsynqSinkOption[T]) *AsynqSink[T] {
	s := &AsynqSink[T]{
		client:   client,
		taskType: taskType,
		queue:    queue,
		encode:   func(v T) ([]byte, error) { return json.Marshal(v) },
		log:      flog.Noop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements router.Sender[T].
func (s *AsynqSink[T]) Send(v T) {
	ctx := context.Background()
	payload, err := s.encode(v)
	if err != nil {
		s.log.Warn(ctx, "routesink: asynq encode failed", flog.String("task_type", s.taskType), flog.Err(err))
		return
	}
	task := asynq.NewTask(s.taskType, payload)
	if _, err := s.client.Enqueue(task, asynq.Queue(s.queue)); err != nil {
		s.log.Warn(ctx, "routesink: asynq enqueue failed", flog.String("task_type", s.taskType), flog.Err(err))
	}
}
