package future

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/everyday-items/flowkit/executor"
	"github.com/everyday-items/flowkit/ferrors"
)

// Ready returns a Future that is already resolved with v on exec — the
// join-free base case, useful as a seed value for Then/WhenAll chains that
// otherwise all share one executor.
func Ready[T any](exec executor.Executor, v T, opts ...Option) Future[T] {
	s := newPairedState[T](exec, opts...)
	s.setValue(v)
	return newFuture(s)
}

// ReadyErr is Ready's error counterpart.
func ReadyErr[T any](exec executor.Executor, err error, opts ...Option) Future[T] {
	s := newPairedState[T](exec, opts...)
	s.setError(err)
	return newFuture(s)
}

// recoverCombine runs combine, converting a panic into an error the same
// way attachState does for Then/Recover continuations.
func recoverCombine[R any](combine func() (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ferrors.NewExceptionHandleFromPanic(r)
		}
	}()
	return combine()
}

// observeForJoin attaches a non-blocking continuation to f: on a value it
// runs store then tick, on an error it hands the error to fail. The
// continuation runs on the immediate executor because it only copies the
// value and decrements a counter; the joins below must never occupy a
// worker of a bounded executor while their inputs are still pending — the
// inputs may themselves need that worker to resolve.
func observeForJoin[T any](f Future[T], store func(T), fail func(error), tick func()) {
	if f.h == nil {
		fail(errInvalidFuture)
		return
	}
	st := f.h.s
	st.attach(newContinuation(executor.Immediate, func() {
		v, hasValue, err, _ := st.snapshot()
		if !hasValue {
			fail(err)
			return
		}
		store(v)
		tick()
	}))
	keepAlive(f.h)
}

// WhenAll2 resolves once both fa and fb resolve with values, then submits
// combiner to exec with their joined values. If any input errors, the
// first error to arrive wins (the result state is single-assignment),
// combiner never runs, and nothing is ever submitted to exec. The join
// itself never blocks: each input is observed by a counting continuation,
// and only the combiner occupies exec.
func WhenAll2[A, B, R any](exec executor.Executor, combiner func(A, B) (R, error), fa Future[A], fb Future[B], opts ...Option) Future[R] {
	s := newPairedState[R](exec, opts...)
	var a A
	var b B
	var pending atomic.Int32
	pending.Store(2)
	tick := func() {
		if pending.Add(-1) != 0 {
			return
		}
		exec.Submit(func() {
			out, err := recoverCombine(func() (R, error) { return combiner(a, b) })
			if err != nil {
				s.setError(err)
				return
			}
			s.setValue(out)
		})
	}
	observeForJoin(fa, func(v A) { a = v }, s.setError, tick)
	observeForJoin(fb, func(v B) { b = v }, s.setError, tick)
	return newFuture(s)
}

// WhenAll3 is WhenAll2 extended to three futures.
func WhenAll3[A, B, C, R any](exec executor.Executor, combiner func(A, B, C) (R, error), fa Future[A], fb Future[B], fc Future[C], opts ...Option) Future[R] {
	s := newPairedState[R](exec, opts...)
	var a A
	var b B
	var c C
	var pending atomic.Int32
	pending.Store(3)
	tick := func() {
		if pending.Add(-1) != 0 {
			return
		}
		exec.Submit(func() {
			out, err := recoverCombine(func() (R, error) { return combiner(a, b, c) })
			if err != nil {
				s.setError(err)
				return
			}
			s.setValue(out)
		})
	}
	observeForJoin(fa, func(v A) { a = v }, s.setError, tick)
	observeForJoin(fb, func(v B) { b = v }, s.setError, tick)
	observeForJoin(fc, func(v C) { c = v }, s.setError, tick)
	return newFuture(s)
}

// WhenAllSlice resolves once every future in fs resolves with a value,
// then submits combiner to exec with the values collected in input order;
// the first error observed across the set wins and combiner never runs.
// Like the fixed-arity joins it blocks nothing while waiting — the counter
// starts one above the input count and the extra tick is paid after
// registration, which also makes the empty range work: combiner then runs
// with an empty collection.
func WhenAllSlice[T, R any](exec executor.Executor, combiner func([]T) (R, error), fs []Future[T], opts ...Option) Future[R] {
	s := newPairedState[R](exec, opts...)
	values := make([]T, len(fs))
	var pending atomic.Int32
	pending.Store(int32(len(fs)) + 1)
	tick := func() {
		if pending.Add(-1) != 0 {
			return
		}
		exec.Submit(func() {
			out, err := recoverCombine(func() (R, error) { return combiner(values) })
			if err != nil {
				s.setError(err)
				return
			}
			s.setValue(out)
		})
	}
	for i, f := range fs {
		i, f := i, f
		observeForJoin(f, func(v T) { values[i] = v }, s.setError, tick)
	}
	tick()
	return newFuture(s)
}

// CollectErrors blocks the calling goroutine on every future in fs and
// folds every rejected input's error into a ferrors.AggregateError, unlike
// WhenAllSlice's first-error-wins join. It returns nil if every future in
// fs resolved with a value. Being a blocking helper it belongs on a
// caller's own goroutine, never inside a task submitted to an executor.
func CollectErrors[T any](fs []Future[T]) error {
	errs := make([]error, len(fs))
	var g errgroup.Group
	for i, f := range fs {
		i, f := i, f
		g.Go(func() error {
			_, err := f.Value()
			errs[i] = err
			return nil
		})
	}
	g.Wait()
	return ferrors.NewAggregateError(errs...)
}

// WhenAny resolves with the value (or error) of whichever future in fs
// resolves first; the rest are left to resolve independently.
func WhenAny[T any](fs []Future[T]) Future[T] {
	s := newSharedState[T]()
	for _, f := range fs {
		f := f
		if f.h == nil {
			s.setError(errInvalidFuture)
			continue
		}
		f.h.s.attach(newContinuation(executor.Immediate, func() {
			v, hasValue, err, _ := f.h.s.snapshot()
			if hasValue {
				s.setValue(v)
				return
			}
			s.setError(err)
		}))
	}
	return newFuture(s)
}
