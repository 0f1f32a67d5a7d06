package future

import "github.com/everyday-items/flowkit/ferrors"

// onceTask is a move-only, invoke-once task box: a Go closure already
// erases the concrete captured type, so what is left to enforce is the
// discipline that every continuation this package schedules runs exactly
// once. Every continuation dispatched by a sharedState is wrapped in one
// before it is handed to an executor.
type onceTask struct {
	invoked bool
	fn      func()
}

func newOnceTask(fn func()) *onceTask {
	return &onceTask{fn: fn}
}

// invoke runs the wrapped function exactly once. A second call is a
// programming error: it panics with ferrors.ErrTaskAlreadyInvoked rather
// than silently doing nothing, so a bug in continuation dispatch surfaces
// immediately instead of being swallowed. invoke is only ever called from
// the single executor.Submit callback a continuation is handed to, so it
// does not need its own synchronization.
func (t *onceTask) invoke() {
	if t.invoked {
		panic(ferrors.ErrTaskAlreadyInvoked)
	}
	t.invoked = true
	t.fn()
}

// empty reports whether invoke has already consumed the task.
func (t *onceTask) empty() bool {
	return t.invoked
}
