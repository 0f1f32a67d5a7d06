package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/everyday-items/flowkit/flog"
)

// asynqTaskType is the single asynq task type this executor registers a
// handler for; every Task is enqueued under it, keyed by a generated id.
const asynqTaskType = "flowkit:executor:task"

// AsynqExecutor is an Executor that hands each submitted Task to an asynq
// queue instead of running it on a local goroutine directly: a client,
// server, and mux keyed by task type. Because a Task is an opaque Go
// closure rather than a serializable payload, the task body itself is kept
// in an in-process registry and the enqueued asynq payload carries only
// its id — the same process that submitted the task must be the one
// running AsynqExecutor's worker side, which is the realistic shape for a
// same-binary pool that wants asynq's persistence and retry semantics
// rather than arbitrary distribution.
type AsynqExecutor struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	queue  string
	logger flog.Logger

	mu      sync.Mutex
	pending map[string]Task
}

// AsynqOption configures an AsynqExecutor.
type AsynqOption func(*asynqOptions)

type asynqOptions struct {
	queue       string
	concurrency int
	logger      flog.Logger
}

// WithAsynqQueue names the queue tasks are enqueued on. Defaults to
// "default".
func WithAsynqQueue(name string) AsynqOption {
	return func(o *asynqOptions) { o.queue = name }
}

// WithAsynqConcurrency sets the asynq server's worker concurrency.
func WithAsynqConcurrency(n int) AsynqOption {
	return func(o *asynqOptions) { o.concurrency = n }
}

// WithAsynqLogger sets the diagnostic logger.
func WithAsynqLogger(l flog.Logger) AsynqOption {
	return func(o *asynqOptions) { o.logger = l }
}

// NewAsynqExecutor connects to Redis at redisOpt and starts an asynq
// server consuming the configured queue. Call Close to stop the server and
// release the client.
func NewAsynqExecutor(redisOpt asynq.RedisConnOpt, opts ...AsynqOption) (*AsynqExecutor, error) {
	o := asynqOptions{queue: "default", concurrency: 4, logger: flog.Noop}
	for _, opt := range opts {
		opt(&o)
	}

	e := &AsynqExecutor{
		client:  asynq.NewClient(redisOpt),
		queue:   o.queue,
		logger:  o.logger,
		pending: make(map[string]Task),
	}

	e.server = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: o.concurrency,
		Queues:      map[string]int{o.queue: 1},
	})
	e.mux = asynq.NewServeMux()
	e.mux.HandleFunc(asynqTaskType, e.handle)

	if err := e.server.Start(e.mux); err != nil {
		return nil, fmt.Errorf("flowkit: asynq executor start: %w", err)
	}
	return e, nil
}

// Submit implements Executor: it registers task under a fresh id and
// enqueues a reference to it on the configured asynq queue.
func (e *AsynqExecutor) Submit(task Task) {
	id := uuid.NewString()
	e.mu.Lock()
	e.pending[id] = task
	e.mu.Unlock()

	t := asynq.NewTask(asynqTaskType, []byte(id))
	if _, err := e.client.Enqueue(t, asynq.Queue(e.queue)); err != nil {
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
		e.logger.Warn(context.Background(), "flowkit: asynq enqueue failed", flog.Err(err))
		// Submit failure is fatal to the caller, not something this
		// executor recovers from internally.
		panic(fmt.Errorf("flowkit: asynq executor: enqueue: %w", err))
	}
}

func (e *AsynqExecutor) handle(ctx context.Context, t *asynq.Task) error {
	id := string(t.Payload())
	e.mu.Lock()
	task, ok := e.pending[id]
	delete(e.pending, id)
	e.mu.Unlock()
	if !ok {
		e.logger.Warn(ctx, "flowkit: asynq executor: unknown task id", flog.String("id", id))
		return nil
	}
	task()
	return nil
}

// Close stops the asynq server and closes the client.
func (e *AsynqExecutor) Close() error {
	e.server.Shutdown()
	return e.client.Close()
}
