package future

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/everyday-items/flowkit/executor"
	"github.com/everyday-items/flowkit/ferrors"
	"github.com/everyday-items/flowkit/flog"
)

// continuation is one entry of a shared state's pending list: the
// executor it must run on, and the task to invoke. The task's closure
// already closes over whatever upstream/downstream state it needs, so
// the list itself stays generic-free.
type continuation struct {
	exec executor.Executor
	task *onceTask
}

// newContinuation wraps fn in a fresh invoke-once task box bound to exec.
func newContinuation(exec executor.Executor, fn func()) continuation {
	return continuation{exec: exec, task: newOnceTask(fn)}
}

// sharedState is the single-assignment storage behind a Promise/Future
// pair: a result slot, a monotonic ready flag, a continuation list, and
// (for reduction) a forwarding pointer. It is not exported; Promise[T]
// and Future[T] are the only handles callers hold.
type sharedState[T any] struct {
	mu       sync.Mutex
	ready    bool
	hasValue bool
	value    T
	err      error
	conts    []continuation
	forward  *sharedState[T]

	// exec is the executor that produced this state — the one passed to
	// Async, Ready, ReadyErr, or to whichever Then/Recover/ThenCompose
	// call computed it. Continuation operators that omit an explicit
	// executor (ThenInherit, RecoverInherit) reuse this one instead.
	exec executor.Executor

	// strong counts every reason this state might still produce a value:
	// live Future[T] handles that have not yet been released, plus any
	// continuation currently queued on this state waiting for it to
	// become ready. The latter matters because a continuation already
	// attached is in-flight work that must not be cut short just because
	// whichever Future handle registered it has since become
	// unreachable — see attach below.
	strong   atomic.Int32
	detached atomic.Bool

	// log receives Debug-level diagnostics, set via WithLogger on the
	// factory that produced this state and inherited by derived states.
	log flog.Logger
}

func newSharedState[T any]() *sharedState[T] {
	return &sharedState[T]{exec: executor.Immediate, log: flog.Noop}
}

// resolve follows the forwarding chain (set by reduction) to the terminal
// state that actually owns the result. For a state that has never
// reduced, resolve returns itself.
func (s *sharedState[T]) resolve() *sharedState[T] {
	cur := s
	for {
		cur.mu.Lock()
		f := cur.forward
		cur.mu.Unlock()
		if f == nil {
			return cur
		}
		cur = f
	}
}

// attach registers c to run once the (resolved) state becomes ready. If it
// is already ready, c is scheduled immediately. Atomic w.r.t. concurrent
// setValue/setError/setForward.
//
// A continuation queued here is in-flight work toward this state, so it
// earns its own strong reference for as long as it sits in the pending
// list: without it, a chain whose only live Future handle is dropped
// right after attaching a continuation (the common case — nobody keeps
// the upstream Future around once they've chained off it) would resolve
// to broken-promise out from under a downstream that is plainly still
// waiting on it. The reference is released once the continuation is
// actually dispatched, in setValue/setError below.
func (s *sharedState[T]) attach(c continuation) {
	t := s.resolve()
	t.mu.Lock()
	if t.ready {
		t.mu.Unlock()
		c.exec.Submit(c.task.invoke)
		return
	}
	t.strong.Add(1)
	t.conts = append(t.conts, c)
	t.mu.Unlock()
}

// setValue is the idempotent-only-first-wins transition to ready-with-
// value. Queued continuations are drained under the lock and submitted to
// their executors after it is released (avoids re-entrant deadlock and
// priority inversion when an executor — e.g. the immediate executor —
// runs the continuation synchronously on this same call stack).
func (s *sharedState[T]) setValue(v T) {
	t := s.resolve()
	t.mu.Lock()
	if t.ready || t.forward != nil {
		t.mu.Unlock()
		return
	}
	t.value = v
	t.hasValue = true
	t.ready = true
	conts := t.conts
	t.conts = nil
	t.mu.Unlock()

	for _, c := range conts {
		c.exec.Submit(c.task.invoke)
		t.strong.Add(-1)
	}
}

// setError is setValue's error counterpart.
func (s *sharedState[T]) setError(err error) {
	t := s.resolve()
	t.mu.Lock()
	if t.ready || t.forward != nil {
		t.mu.Unlock()
		return
	}
	t.err = err
	t.ready = true
	conts := t.conts
	t.conts = nil
	t.mu.Unlock()

	for _, c := range conts {
		c.exec.Submit(c.task.invoke)
		t.strong.Add(-1)
	}
}

// setForward implements reduction: once a continuation's callable has
// returned an inner future, s stops being a leaf state and instead
// redirects every subsequent attach/snapshot to inner's terminal state.
// Continuations already queued on s are migrated to inner exactly once.
// Reduction is transitive because attach/resolve always chase the full
// forwarding chain, so it does not matter whether inner itself later
// reduces again. The strong references those continuations already hold
// on s are not transferred — s's own strong count stops mattering once it
// is forwarded, since maybeAbandon below treats a forwarded state as
// never abandonable in its own right.
func (s *sharedState[T]) setForward(inner *sharedState[T]) {
	innerTerm := inner.resolve()
	if innerTerm == s {
		// Degenerate self-reduction: treat as broken rather than deadlock
		// on an unresolvable cycle.
		s.setError(ferrors.Wrap(ferrors.ErrMisuse, "future: self-referential reduction"))
		return
	}

	s.mu.Lock()
	if s.ready || s.forward != nil {
		s.mu.Unlock()
		return
	}
	conts := s.conts
	s.conts = nil
	s.forward = innerTerm
	s.mu.Unlock()

	for _, c := range conts {
		innerTerm.attach(c)
	}
}

// snapshot reads the resolved state's result without blocking. ready is
// false while pending; when true, exactly one of (value valid) or (err !=
// nil) holds.
func (s *sharedState[T]) snapshot() (value T, hasValue bool, err error, ready bool) {
	t := s.resolve()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.hasValue, t.err, t.ready
}

// isReady reports readiness without copying the (possibly large) value.
func (s *sharedState[T]) isReady() bool {
	t := s.resolve()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

// owningExecutor returns the executor this state was produced on, for the
// no-executor continuation operators that inherit it.
func (s *sharedState[T]) owningExecutor() executor.Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec
}

// retain registers a strong Future[T] handle. It returns a release func
// the caller should invoke (directly, or via runtime.AddCleanup) when the
// handle is no longer reachable.
func (s *sharedState[T]) retain() (release func()) {
	s.strong.Add(1)
	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		if s.strong.Add(-1) == 0 {
			s.maybeAbandon()
		}
	}
}

// detach opts out of implicit cancellation: it sets a flag that
// maybeAbandon checks, so the chain runs to completion even if every
// Future handle is dropped.
func (s *sharedState[T]) detach() {
	s.detached.Store(true)
}

// maybeAbandon resolves the state to broken-promise if its strong count
// has dropped to zero before it became ready and nobody detached the
// chain, so downstream observers unblock instead of waiting forever on
// work nobody can still observe or that is no longer in flight.
func (s *sharedState[T]) maybeAbandon() {
	if s.detached.Load() {
		return
	}
	s.mu.Lock()
	forwarded := s.forward != nil
	s.mu.Unlock()
	if forwarded {
		// Ownership of cancellation already transferred to the reduced-to
		// state, which has its own independent strong-reference count —
		// dropping this handle must not cancel a future other consumers
		// of the inner state may still hold.
		return
	}
	if s.strong.Load() > 0 {
		return
	}
	s.resolveBroken()
}

// resolveBroken resolves the state to broken-promise: the single funnel
// every abandonment path goes through, so the Debug diagnostic fires
// whether the chain was dropped by GC, discarded explicitly, or lost its
// last promise handle.
func (s *sharedState[T]) resolveBroken() {
	t := s.resolve()
	t.mu.Lock()
	done := t.ready || t.forward != nil
	t.mu.Unlock()
	if done {
		return
	}
	s.log.Debug(context.Background(), "future: chain resolved to broken promise")
	s.setError(ferrors.ErrBrokenPromise)
}

// blockingWait parks the calling goroutine until the (resolved, possibly
// still-reducing) state becomes ready. It rides the same attach/resolve
// machinery as every other continuation, so it stays correct across
// nested reduction the way a hand-rolled one-shot channel capture would
// not (a state that reduces again after this call already resolved past
// it still migrates the waiter via setForward's attach-on-migrate).
func (s *sharedState[T]) blockingWait() {
	done := make(chan struct{})
	s.attach(newContinuation(executor.Immediate, func() { close(done) }))
	<-done
}

// keepAlive makes sure v survives until this call, used after a shared
// state has registered a continuation against some upstream Future handle
// so the handle cannot be finalized mid-attach.
func keepAlive(v any) {
	runtime.KeepAlive(v)
}
