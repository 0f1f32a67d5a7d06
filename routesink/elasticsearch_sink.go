package routesink

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/everyday-items/flowkit/flog"
)

// ElasticsearchSink indexes every routed item into index via the esapi
// request-struct API, assigning sequential document ids.
type ElasticsearchSink[T any] struct {
	client *elasticsearch.Client
	index  string
	encode func(T) ([]byte, error)
	log    flog.Logger
	seq    atomic.Int64
}

// ElasticsearchSinkOption configures an ElasticsearchSink.
type ElasticsearchSinkOption[T any] func(*ElasticsearchSink[T])

// WithElasticsearchEncoder overrides the default json.Marshal encoding.
func WithElasticsearchEncoder[T any](encode func(T) ([]byte, error)) ElasticsearchSinkOption[T] {
	return func(s *ElasticsearchSink[T]) { s.encode = encode }
}

// WithElasticsearchLogger attaches a logger for index failures.
func WithElasticsearchLogger[T any](l flog.Logger) ElasticsearchSinkOption[T] {
	return func(s *ElasticsearchSink[T]) { s.log = l }
}

// NewElasticsearchSink builds a sink that indexes into index.
func NewElasticsearchSink[T any](client *elasticsearch.Client, index string, opts ...ElasticsearchSinkOption[T]) *ElasticsearchSink[T] {
	s := &ElasticsearchSink[T]{
		client: client,
		index:  index,
		encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		log:    flog.Noop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements router.Sender[T].
func (s *ElasticsearchSink[T]) Send(v T) {
	ctx := context.Background()
	body, err := s.encode(v)
	if err != nil {
		s.log.Warn(ctx, "routesink: elasticsearch encode failed", flog.String("index", s.index), flog.Err(err))
		return
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(s.seq.Add(1), 10),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.log.Warn(ctx, "routesink: elasticsearch index request failed", flog.String("index", s.index), flog.Err(err))
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.log.Warn(ctx, "routesink: elasticsearch index response error", flog.String("index", s.index), flog.String("status", res.Status()))
	}
}
