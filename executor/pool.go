package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/bytedance/gopkg/util/gopool"

	"github.com/everyday-items/flowkit/flog"
)

// PoolConfig configures a PoolExecutor.
type PoolConfig struct {
	// Name identifies the pool for diagnostics and for gopool's internal
	// registry (pools are looked up by name).
	Name string

	// MaxWorkers bounds the number of goroutines the underlying gopool
	// pool keeps warm. Zero selects a default proportional to NumCPU.
	MaxWorkers int32

	// PanicHandler runs when a submitted task panics. The default logs
	// the recovered value and stack at Warn and never re-panics: a
	// panicking task must not take down the pool.
	PanicHandler func(ctx context.Context, recovered any)

	// Logger receives diagnostics. Defaults to flog.Noop.
	Logger flog.Logger
}

// Option configures a PoolConfig.
type Option func(*PoolConfig)

// WithName sets the pool's name.
func WithName(name string) Option {
	return func(c *PoolConfig) { c.Name = name }
}

// WithMaxWorkers bounds the number of warm goroutines.
func WithMaxWorkers(n int32) Option {
	return func(c *PoolConfig) { c.MaxWorkers = n }
}

// WithPanicHandler overrides the panic handler.
func WithPanicHandler(h func(ctx context.Context, recovered any)) Option {
	return func(c *PoolConfig) { c.PanicHandler = h }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l flog.Logger) Option {
	return func(c *PoolConfig) { c.Logger = l }
}

// DefaultPoolConfig returns a config with NumCPU*4 max workers, the no-op
// logger, and no PanicHandler; NewPoolExecutor fills a nil PanicHandler
// with one that logs and swallows.
func DefaultPoolConfig() PoolConfig {
	numCPU := int32(runtime.NumCPU())
	if numCPU < 1 {
		numCPU = 1
	}
	return PoolConfig{
		Name:       "flowkit-pool",
		MaxWorkers: numCPU * 4,
		Logger:     flog.Noop,
	}
}

// Metrics holds PoolExecutor counters.
type Metrics struct {
	Submitted atomic.Int64
	Completed atomic.Int64
	Failed    atomic.Int64
}

// PoolExecutor is an Executor backed by a bytedance/gopkg goroutine pool:
// tasks are scheduled onto a small set of reused goroutines instead of one
// goroutine per submission, and a panicking task is recovered rather than
// crashing the pool.
type PoolExecutor struct {
	pool    gopool.Pool
	cfg     PoolConfig
	metrics Metrics
}

// NewPoolExecutor builds a PoolExecutor. Options override DefaultPoolConfig
// fields one at a time.
func NewPoolExecutor(opts ...Option) *PoolExecutor {
	cfg := DefaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = flog.Noop
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}

	e := &PoolExecutor{cfg: cfg}
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = e.defaultPanicHandler
	}

	p := gopool.NewPool(cfg.Name, cfg.MaxWorkers, gopool.NewConfig())
	p.SetPanicHandler(func(ctx context.Context, r any) {
		e.metrics.Failed.Add(1)
		cfg.PanicHandler(ctx, r)
	})
	e.pool = p
	e.cfg = cfg
	return e
}

func (e *PoolExecutor) defaultPanicHandler(ctx context.Context, r any) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	e.cfg.Logger.Warn(ctx, "flowkit: pool task panicked",
		flog.Any("recovered", r), flog.String("stack", string(buf[:n])))
}

// Submit implements Executor.
func (e *PoolExecutor) Submit(task Task) {
	e.metrics.Submitted.Add(1)
	e.pool.CtxGo(context.Background(), func() {
		task()
		e.metrics.Completed.Add(1)
	})
}

// SubmitCtx submits task with a context that the pool's panic handler
// receives verbatim, useful when PanicHandler needs request-scoped values.
func (e *PoolExecutor) SubmitCtx(ctx context.Context, task Task) {
	e.metrics.Submitted.Add(1)
	e.pool.CtxGo(ctx, func() {
		task()
		e.metrics.Completed.Add(1)
	})
}

// Stats returns a snapshot of the pool's counters.
func (e *PoolExecutor) Stats() (submitted, completed, failed int64) {
	return e.metrics.Submitted.Load(), e.metrics.Completed.Load(), e.metrics.Failed.Load()
}

// SetMaxWorkers adjusts the underlying pool's capacity at runtime.
func (e *PoolExecutor) SetMaxWorkers(n int32) {
	e.pool.SetCap(n)
}

// String implements fmt.Stringer for diagnostics.
func (e *PoolExecutor) String() string {
	return fmt.Sprintf("PoolExecutor(name=%s, max=%d)", e.cfg.Name, e.cfg.MaxWorkers)
}
