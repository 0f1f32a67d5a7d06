// Package routesink adapts router.Sender[T] to concrete external systems:
// Redis, asynq, MongoDB, ClickHouse, Elasticsearch, and Prometheus. Every
// sink here can replace the in-process channel router.NewChannel hands out
// from router.AddRoute — the router itself stays unaware whether a route's
// sender writes to a goroutine-fed channel or to a Redis list.
package routesink
