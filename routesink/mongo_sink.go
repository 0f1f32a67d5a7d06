package routesink

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/everyday-items/flowkit/flog"
)

// MongoSink inserts every routed item as a document into a Mongo
// collection via *mongo.Collection.
type MongoSink[T any] struct {
	collection *mongo.Collection
	log        flog.Logger
}

// MongoSinkOption configures a MongoSink.
type MongoSinkOption[T any] func(*MongoSink[T])

// WithMongoLogger attaches a logger for insert failures.
func WithMongoLogger[T any](l flog.Logger) MongoSinkOption[T] {
	return func(s *MongoSink[T]) { s.log = l }
}

// NewMongoSink builds a sink that inserts into collection.
func NewMongoSink[T any](collection *mongo.Collection, opts ...MongoSinkOption[T]) *MongoSink[T] {
	s := &MongoSink[T]{collection: collection, log: flog.Noop}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements router.Sender[T].
func (s *MongoSink[T]) Send(v T) {
	ctx := context.Background()
	if _, err := s.collection.InsertOne(ctx, v); err != nil {
		s.log.Warn(ctx, "routesink: mongo insert failed", flog.Err(err))
	}
}
