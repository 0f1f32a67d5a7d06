package future

import (
	"github.com/everyday-items/flowkit/executor"
	"github.com/everyday-items/flowkit/ferrors"
	"github.com/everyday-items/flowkit/flog"
)

// newPairedState builds a shared state tagged with the executor that
// produced it, so continuation operators that omit an explicit executor
// (ThenInherit, RecoverInherit) have something to inherit, and applies
// any construction options (WithLogger).
func newPairedState[T any](exec executor.Executor, opts ...Option) *sharedState[T] {
	cfg := settings{log: flog.Noop}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := newSharedState[T]()
	s.exec = exec
	s.log = cfg.log
	return s
}

// NewPromise creates a matched Promise/Future pair sharing a fresh state.
// Together with Package it is the only way to obtain a producer handle;
// every other Future in this package is produced by composing an existing
// one (Then, Recover, ThenCompose, Async, Ready, WhenAll2, WhenAll3,
// WhenAllSlice).
func NewPromise[T any](opts ...Option) (Promise[T], Future[T]) {
	s := newPairedState[T](executor.Immediate, opts...)
	return newPromise(s), newFuture(s)
}

// Package binds fn to a fresh shared state and returns an invoker together
// with the Future observing fn's eventual result, for callers who need to
// construct a chain before its input exists. Calling invoke submits
// fn(arg) to exec; the state is single-assignment, so only the first
// invocation's result lands, and a panic inside fn resolves the Future to
// an error just as with Async. Dropping both the invoker and every Future
// handle without ever invoking resolves the chain to broken-promise.
func Package[A, T any](exec executor.Executor, fn func(A) (T, error), opts ...Option) (invoke func(A), f Future[T]) {
	s := newPairedState[T](exec, opts...)
	invoke = func(arg A) {
		exec.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					s.setError(ferrors.NewExceptionHandleFromPanic(r))
				}
			}()
			v, err := fn(arg)
			if err != nil {
				s.setError(err)
				return
			}
			s.setValue(v)
		})
	}
	return invoke, newFuture(s)
}

// Async submits fn to exec and returns a Future observing its result,
// folding a Promise/Future pair plus exec.Submit into the common single
// call that is the idiomatic entry point into a chain. A panic inside fn
// resolves the returned Future to an error rather than crashing exec's
// goroutine.
func Async[T any](exec executor.Executor, fn func() (T, error), opts ...Option) Future[T] {
	s := newPairedState[T](exec, opts...)
	exec.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				s.setError(ferrors.NewExceptionHandleFromPanic(r))
			}
		}()
		v, err := fn()
		if err != nil {
			s.setError(err)
			return
		}
		s.setValue(v)
	})
	return newFuture(s)
}
