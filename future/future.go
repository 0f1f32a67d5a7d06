package future

import (
	"runtime"

	"github.com/everyday-items/flowkit/executor"
	"github.com/everyday-items/flowkit/ferrors"
)

// futureHandle is the single allocation backing every copy of a given
// Future[T], mirroring promiseHandle: copies share strong-reference
// accounting rather than each independently registering and releasing one
// (which would undercount abandonment — the chain is only truly abandoned
// once every copy, not just one, is gone).
type futureHandle[T any] struct {
	s       *sharedState[T]
	release func()
}

// Future is the consumer handle: read access to a shared state, with
// Then/Recover attaching continuations and the compositors joining several
// futures. A zero-valued Future is invalid; always obtain one from Async,
// NewPromise, Then, Recover, or a compositor.
type Future[T any] struct {
	h *futureHandle[T]
}

func newFuture[T any](s *sharedState[T]) Future[T] {
	release := s.retain()
	h := &futureHandle[T]{s: s, release: release}
	runtime.AddCleanup(h, func(release func()) { release() }, release)
	return Future[T]{h: h}
}

// Valid reports whether f refers to a live shared state.
func (f Future[T]) Valid() bool {
	return f.h != nil
}

// IsReady reports whether the (resolved) state already holds a value or
// an error. It never blocks.
func (f Future[T]) IsReady() bool {
	if f.h == nil {
		return false
	}
	return f.h.s.isReady()
}

// Detach opts this chain out of implicit cancellation: it keeps running
// to completion even after every Future handle referring to it is
// dropped. It does not affect a dropped unfulfilled Promise, which still
// resolves the state to broken-promise. Use it for fire-and-forget chains
// whose side effects matter more than their result.
func (f Future[T]) Detach() {
	if f.h == nil {
		return
	}
	f.h.s.detach()
}

// Value blocks until the chain is ready and returns its value, or the
// zero value and a non-nil error if it resolved to an error (including
// ferrors.ErrBrokenPromise on abandonment).
func (f Future[T]) Value() (T, error) {
	var zero T
	if f.h == nil {
		return zero, errInvalidFuture
	}
	f.h.s.blockingWait()
	v, hasValue, err, _ := f.h.s.snapshot()
	if !hasValue {
		return zero, err
	}
	return v, nil
}

// Take is the non-blocking counterpart of Value: it reports whether the
// chain was already ready, and if so its result, without waiting.
func (f Future[T]) Take() (value T, err error, ready bool) {
	var zero T
	if f.h == nil {
		return zero, errInvalidFuture, false
	}
	v, hasValue, e, isReady := f.h.s.snapshot()
	if !isReady {
		return zero, nil, false
	}
	if !hasValue {
		return zero, e, true
	}
	return v, nil, true
}

// Exception returns the chain's error without blocking. It returns nil if
// the chain is not yet ready or resolved with a value.
func (f Future[T]) Exception() error {
	if f.h == nil {
		return errInvalidFuture
	}
	_, hasValue, err, ready := f.h.s.snapshot()
	if !ready || hasValue {
		return nil
	}
	return err
}

// inheritedExecutor returns the executor an invalid or no-executor
// continuation should fall back to: the one that produced f's upstream
// state, or executor.Immediate if f itself is invalid.
func inheritedExecutor[T any](f Future[T]) executor.Executor {
	if f.h == nil {
		return executor.Immediate
	}
	return f.h.s.owningExecutor()
}

// attachState is the shared plumbing behind Then/Recover/ThenCompose: it
// wires exec into the upstream state's continuation list and returns the
// Future observing the freshly allocated downstream state. The run
// closure is wrapped so a panic inside a caller-supplied callback resolves
// the downstream future to an error instead of crashing the executor's
// goroutine.
func attachState[T, U any](f Future[T], exec executor.Executor, run func(upstream *sharedState[T], downstream *sharedState[U])) Future[U] {
	downstream := newSharedState[U]()
	downstream.exec = exec
	if f.h == nil {
		downstream.setError(errInvalidFuture)
		return newFuture(downstream)
	}
	upstream := f.h.s
	downstream.log = upstream.log
	upstream.attach(newContinuation(exec, func() {
		defer func() {
			if r := recover(); r != nil {
				downstream.setError(ferrors.NewExceptionHandleFromPanic(r))
			}
		}()
		run(upstream, downstream)
	}))
	// f.h must stay reachable until attach has registered its continuation
	// against upstream; attach itself now also holds a strong reference on
	// upstream for as long as the continuation is queued, but f.h's own
	// finalizer releasing mid-call would still be a bug this guards against.
	keepAlive(f.h)
	return newFuture(downstream)
}

// Then attaches fn to run (on exec) once f resolves with a value,
// producing a new Future[U]. If f resolves with an error instead, fn
// never runs and the error propagates untouched to the returned future.
func Then[T, U any](f Future[T], exec executor.Executor, fn func(T) (U, error)) Future[U] {
	return attachState(f, exec, func(upstream *sharedState[T], downstream *sharedState[U]) {
		v, hasValue, err, _ := upstream.snapshot()
		if !hasValue {
			downstream.setError(err)
			return
		}
		out, ferr := fn(v)
		if ferr != nil {
			downstream.setError(ferr)
			return
		}
		downstream.setValue(out)
	})
}

// ThenInherit is Then without an explicit executor: fn runs on whichever
// executor produced f (the one passed to Async, Ready, or to the Then/
// Recover/ThenCompose call that built f), rather than a freshly chosen one.
func ThenInherit[T, U any](f Future[T], fn func(T) (U, error)) Future[U] {
	return Then(f, inheritedExecutor(f), fn)
}

// ThenCompose is Then's reduction-flattening counterpart: fn itself
// returns a Future[U], and the returned Future[U] resolves to that inner
// future's eventual result rather than to a Future[Future[U]].
func ThenCompose[T, U any](f Future[T], exec executor.Executor, fn func(T) (Future[U], error)) Future[U] {
	return attachState(f, exec, func(upstream *sharedState[T], downstream *sharedState[U]) {
		v, hasValue, err, _ := upstream.snapshot()
		if !hasValue {
			downstream.setError(err)
			return
		}
		inner, ferr := fn(v)
		if ferr != nil {
			downstream.setError(ferr)
			return
		}
		if inner.h == nil {
			downstream.setError(errInvalidFuture)
			return
		}
		downstream.setForward(inner.h.s)
	})
}

// Recover attaches fn to run (on exec) once f resolves, whether with a
// value or an error. fn receives a Future[T] view of the upstream result
// (already resolved — Take on it never blocks) so it can inspect either
// outcome, substitute a value, or propagate a (possibly different) error.
func Recover[T any](f Future[T], exec executor.Executor, fn func(Future[T]) (T, error)) Future[T] {
	return attachState(f, exec, func(upstream *sharedState[T], downstream *sharedState[T]) {
		out, ferr := fn(newFuture(upstream))
		if ferr != nil {
			downstream.setError(ferr)
			return
		}
		downstream.setValue(out)
	})
}

// RecoverInherit is Recover without an explicit executor: fn runs on
// whichever executor produced f.
func RecoverInherit[T any](f Future[T], fn func(Future[T]) (T, error)) Future[T] {
	return Recover(f, inheritedExecutor(f), fn)
}
