package future

import "runtime"

// promiseHandle is the one heap allocation backing every copy of a given
// Promise[T] value. Promise is handed out by value and is cheap to copy,
// but every copy points at the same handle, so runtime.AddCleanup only
// fires once the very last copy becomes unreachable.
type promiseHandle[T any] struct {
	s *sharedState[T]
}

// Promise is the producer handle: a single-use write capability over a
// shared state. Copying a Promise value copies the handle reference, not
// the state — every copy observes and can fulfill the same underlying
// result.
type Promise[T any] struct {
	h *promiseHandle[T]
}

func newPromise[T any](s *sharedState[T]) Promise[T] {
	h := &promiseHandle[T]{s: s}
	// Unlike a dropped Future handle, a dropped unfulfilled Promise breaks
	// the state unconditionally: once the producer side is gone nothing can
	// ever fulfill it, detached or not, so waiting downstream consumers
	// must be unblocked with broken-promise.
	runtime.AddCleanup(h, func(s *sharedState[T]) {
		s.resolveBroken()
	}, s)
	return Promise[T]{h: h}
}

// SetValue fulfills the promise with v. Only the first of SetValue/
// SetError across every copy of this Promise has effect; later calls are
// silently ignored — the underlying state is single-assignment.
func (p Promise[T]) SetValue(v T) {
	if p.h == nil {
		return
	}
	p.h.s.setValue(v)
}

// SetError fulfills the promise with an error, unblocking every attached
// continuation's Recover (or propagating past a bare Then).
func (p Promise[T]) SetError(err error) {
	if p.h == nil {
		return
	}
	p.h.s.setError(err)
}

// Discard abandons the promise without a value, deterministically
// resolving the chain to broken-promise right away instead of waiting for
// garbage collection to notice. Prefer this over letting every copy of a
// Promise go out of scope whenever the abandonment is intentional.
func (p Promise[T]) Discard() {
	if p.h == nil {
		return
	}
	p.h.s.resolveBroken()
}

// Valid reports whether the promise still refers to a live shared state.
func (p Promise[T]) Valid() bool {
	return p.h != nil
}
