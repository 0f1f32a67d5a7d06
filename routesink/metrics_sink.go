package routesink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/everyday-items/flowkit/router"
)

// MetricsSink wraps another router.Sender[T] and counts every item routed
// through it (and every one dropped because the inner sink panicked),
// keyed by a caller-supplied route label. The counters come from
// NewCounterVecs, which registers them against whichever
// prometheus.Registerer the caller passes.
type MetricsSink[T any] struct {
	inner   router.Sender[T]
	key     string
	routed  prometheus.Counter
	dropped prometheus.Counter
}

// NewMetricsSink returns a sink that wraps inner and counts through the
// routed/dropped counter vectors (built once per registry via
// NewCounterVecs), labeled by routeKey.
func NewMetricsSink[T any](routed, dropped *prometheus.CounterVec, routeKey string, inner router.Sender[T]) *MetricsSink[T] {
	return &MetricsSink[T]{
		inner:   inner,
		key:     routeKey,
		routed:  routed.WithLabelValues(routeKey),
		dropped: dropped.WithLabelValues(routeKey),
	}
}

// NewCounterVecs builds the pair of CounterVecs NewMetricsSink expects,
// registering them against reg.
func NewCounterVecs(reg prometheus.Registerer) (routed, dropped *prometheus.CounterVec) {
	routed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routesink_items_routed_total",
		Help: "Items successfully handed to a routesink.Sink, by route key.",
	}, []string{"route"})
	dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routesink_items_dropped_total",
		Help: "Items dropped because the wrapped sink panicked, by route key.",
	}, []string{"route"})
	reg.MustRegister(routed, dropped)
	return routed, dropped
}

// Send implements router.Sender[T]. A panic inside the wrapped sink is
// recovered and counted as a drop rather than propagated, since Send has
// no error return for the router to observe.
func (s *MetricsSink[T]) Send(v T) {
	defer func() {
		if r := recover(); r != nil {
			s.dropped.Inc()
		}
	}()
	s.inner.Send(v)
	s.routed.Inc()
}
