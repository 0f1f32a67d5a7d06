package routesink

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/everyday-items/flowkit/flog"
)

// ClickHouseSink batches routed items and flushes them as a single bulk
// INSERT, either once batchSize items have accumulated or every
// flushInterval, whichever comes first, following ClickHouse's own
// recommendation (via PrepareBatch) against single-row inserts.
type ClickHouseSink[T any] struct {
	conn      driver.Conn
	table     string
	toRow     func(T) []any
	batchSize int
	log       flog.Logger

	mu      sync.Mutex
	pending []T
	timer   *time.Timer
}

// ClickHouseSinkOption configures a ClickHouseSink.
type ClickHouseSinkOption[T any] func(*ClickHouseSink[T])

// WithClickHouseBatchSize overrides the default batch size of 100.
func WithClickHouseBatchSize[T any](n int) ClickHouseSinkOption[T] {
	return func(s *ClickHouseSink[T]) { s.batchSize = n }
}

// WithClickHouseLogger attaches a logger for flush failures.
func WithClickHouseLogger[T any](l flog.Logger) ClickHouseSinkOption[T] {
	return func(s *ClickHouseSink[T]) { s.log = l }
}

// NewClickHouseSink builds a sink that flushes rows (produced from each
// item by toRow, in column order) into table.
func NewClickHouseSink[T any](conn driver.Conn, table string, toRow func(T) []any, flushInterval time.Duration, opts ...ClickHouseSinkOption[T]) *ClickHouseSink[T] {
	s := &ClickHouseSink[T]{
		conn:      conn,
		table:     table,
		toRow:     toRow,
		batchSize: 100,
		log:       flog.Noop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timer = time.AfterFunc(flushInterval, s.flushOnTimer(flushInterval))
	return s
}

func (s *ClickHouseSink[T]) flushOnTimer(interval time.Duration) func() {
	return func() {
		s.flush()
		s.timer.Reset(interval)
	}
}

// Send implements router.Sender[T].
func (s *ClickHouseSink[T]) Send(v T) {
	s.mu.Lock()
	s.pending = append(s.pending, v)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()
	if full {
		s.flush()
	}
}

func (s *ClickHouseSink[T]) flush() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	ctx := context.Background()
	b, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
	if err != nil {
		s.log.Warn(ctx, "routesink: clickhouse prepare batch failed", flog.String("table", s.table), flog.Err(err))
		return
	}
	for _, v := range batch {
		if err := b.Append(s.toRow(v)...); err != nil {
			s.log.Warn(ctx, "routesink: clickhouse batch append failed", flog.String("table", s.table), flog.Err(err))
			return
		}
	}
	if err := b.Send(); err != nil {
		s.log.Warn(ctx, "routesink: clickhouse batch send failed", flog.String("table", s.table), flog.Err(err))
	}
}
