package router

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/everyday-items/flowkit/executor"
	"github.com/everyday-items/flowkit/ferrors"
	"github.com/everyday-items/flowkit/flog"
)

// Classifier maps one input value to the sequence of route keys it should
// be forwarded to. Every key is looked up regardless of order: Dispatch
// reuses a forward-scanning cursor over the sorted route table for a
// non-decreasing run (the amortized lower_bound scan the source router
// performs) and restarts the search over the full table the moment a key
// is smaller than the one before it, so an out-of-order classifier still
// finds every matching route, just with more binary searches.
type Classifier[Arg any, K cmp.Ordered] func(Arg) []K

type routeEntry[Arg any, K cmp.Ordered] struct {
	key    K
	sender Sender[Arg]
}

// Router is a building/ready two-phase keyed multiplexer. AddRoute is
// only valid while building; Dispatch is only valid once ready.
type Router[Arg any, K cmp.Ordered] struct {
	mu       sync.Mutex
	exec     executor.Executor
	classify Classifier[Arg, K]
	routes   []routeEntry[Arg, K]
	ready    bool
	log      flog.Logger
}

// Option configures a Router at construction, matching the functional
// options idiom used throughout this module's constructors.
type Option[Arg any, K cmp.Ordered] func(*Router[Arg, K])

// WithLogger attaches a logger used for Debug-level dispatch diagnostics
// (a correlation id per Dispatch call, and a note whenever a classified
// key has no matching route). Defaults to flog.Noop.
func WithLogger[Arg any, K cmp.Ordered](l flog.Logger) Option[Arg, K] {
	return func(r *Router[Arg, K]) { r.log = l }
}

// New constructs a Router in the building state.
func New[Arg any, K cmp.Ordered](exec executor.Executor, classify Classifier[Arg, K], opts ...Option[Arg, K]) *Router[Arg, K] {
	r := &Router[Arg, K]{exec: exec, classify: classify, log: flog.Noop}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddRoute registers a new receiver under key. It fails once the router
// has left the building state.
func (r *Router[Arg, K]) AddRoute(key K) (Receiver[Arg], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil, ferrors.ErrRouterAlreadyReady
	}
	sender, receiver := NewChannel[Arg](r.exec)
	r.routes = append(r.routes, routeEntry[Arg, K]{key: key, sender: sender})
	return receiver, nil
}

// SetReady freezes the route table, sorted by key, and arms every
// receiver so values sent (or buffered) so far begin flowing. It is the
// router's only legal transition out of building; Dispatch refuses to run
// until it has been called.
func (r *Router[Arg, K]) SetReady() error {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		return ferrors.ErrRouterAlreadyReady
	}
	r.ready = true
	sort.Slice(r.routes, func(i, j int) bool { return r.routes[i].key < r.routes[j].key })
	routes := r.routes
	r.mu.Unlock()

	for _, route := range routes {
		// route.sender is backed by the same chanCore as the Receiver
		// already handed out by AddRoute; arm it by going through the
		// same handle type so SetReady reaches the shared core.
		if rdy, ok := route.sender.(readySetter); ok {
			rdy.setReady()
		}
	}
	return nil
}

// readySetter lets SetReady arm a route's receiver without the Router
// itself retaining a separate Receiver reference per route (the sender
// and receiver handles returned by NewChannel share one chanCore).
type readySetter interface {
	setReady()
}

func (s senderHandle[T]) setReady() {
	receiverHandle[T]{c: s.c}.SetReady()
}

// Dispatch submits arg for classification and delivery on the router's
// executor. It returns ErrRouterNotReady if called before SetReady.
// Delivery itself is asynchronous: Dispatch returning does not mean every
// matching route has received the value yet.
func (r *Router[Arg, K]) Dispatch(arg Arg) error {
	r.mu.Lock()
	if !r.ready {
		r.mu.Unlock()
		return ferrors.ErrRouterNotReady
	}
	routes := r.routes
	classify := r.classify
	r.mu.Unlock()

	correlationID := uuid.NewString()
	ctx := context.Background()
	r.log.Debug(ctx, "router: dispatch", flog.String("correlation_id", correlationID))

	r.exec.Submit(func() {
		keys := classify(arg)
		idx := 0
		haveLast := false
		var last K
		for _, key := range keys {
			// The forward-scanning cursor only stays correct across a
			// non-decreasing run of keys. A classifier is not required to
			// return its keys in sorted order, so a key smaller than the
			// previous one restarts the search over the full table instead
			// of continuing from a cursor that has already moved past it.
			if haveLast && key < last {
				idx = lowerBound(routes, key)
			} else {
				idx += lowerBound(routes[idx:], key)
			}
			last = key
			haveLast = true

			if idx >= len(routes) || routes[idx].key != key {
				r.log.Debug(ctx, "router: key has no route", flog.String("correlation_id", correlationID), flog.String("key", fmt.Sprint(key)))
				continue
			}
			// Each match gets its own copy of arg via Go's ordinary
			// by-value semantics, so one route mutating its copy cannot
			// affect another route's delivery.
			routes[idx].sender.Send(arg)
		}
	})
	return nil
}

// lowerBound returns the index of the first route in routes whose key is
// >= target, or len(routes) if none qualifies.
func lowerBound[Arg any, K cmp.Ordered](routes []routeEntry[Arg, K], target K) int {
	return sort.Search(len(routes), func(i int) bool { return routes[i].key >= target })
}
