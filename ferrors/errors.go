package ferrors

import (
	"errors"
	"fmt"
)

// Sentinel errors recognized throughout future, router, and executor.
var (
	// ErrBrokenPromise is the distinguished error a shared state resolves to
	// when its promise is destroyed unfulfilled, or when the last strong
	// reference to an unscheduled chain is dropped.
	ErrBrokenPromise = errors.New("future: broken promise")

	// ErrNotReady names the pending condition of a shared state. The
	// non-blocking accessors do not return it: Future.Take reports pending
	// as ready=false with a nil error, and Future.Exception returns nil.
	ErrNotReady = errors.New("future: not ready")

	// ErrTaskAlreadyInvoked marks the programming error of invoking a task
	// box a second time; onceTask.invoke panics with it rather than
	// silently no-opping, so a dispatch bug surfaces immediately.
	ErrTaskAlreadyInvoked = errors.New("future: task already invoked")

	// ErrMisuse covers other programming errors: a self-referential
	// reduction, or an operation on a zero-valued Future. Fulfilling a
	// zero-valued Promise is a silent no-op, and AddRoute on a ready router
	// returns ErrRouterAlreadyReady instead.
	ErrMisuse = errors.New("future: misuse")

	// ErrRouterNotReady is returned by Dispatch when called before SetReady.
	ErrRouterNotReady = errors.New("router: not ready")

	// ErrRouterAlreadyReady is returned by AddRoute once the router has
	// transitioned out of the building state.
	ErrRouterAlreadyReady = errors.New("router: already ready")
)

// ExceptionHandle is an opaque exception carrier: it stores a user-visible
// error (or an arbitrary recovered panic value) and can be rethrown — in
// Go terms, returned as an error — at the consumption boundary. future's
// continuation dispatch constructs one via NewExceptionHandleFromPanic
// whenever a caller-supplied callback panics, so the panic resolves the
// downstream future instead of crashing the executor's goroutine.
type ExceptionHandle struct {
	cause error
}

// NewExceptionHandle wraps cause in an ExceptionHandle. A nil cause yields
// a handle whose Error() still returns a generic non-empty message and
// whose Unwrap returns nil.
func NewExceptionHandle(cause error) ExceptionHandle {
	return ExceptionHandle{cause: cause}
}

// NewExceptionHandleFromPanic wraps a recovered panic value, preserving it
// as the Unwrap-able cause when it is itself an error.
func NewExceptionHandleFromPanic(v any) ExceptionHandle {
	if err, ok := v.(error); ok {
		return ExceptionHandle{cause: fmt.Errorf("future: panic: %w", err)}
	}
	return ExceptionHandle{cause: fmt.Errorf("future: panic: %v", v)}
}

// Error implements error.
func (e ExceptionHandle) Error() string {
	if e.cause == nil {
		return "future: exception"
	}
	return e.cause.Error()
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e ExceptionHandle) Unwrap() error {
	return e.cause
}

// IsBrokenPromise reports whether err is, or wraps, ErrBrokenPromise.
func IsBrokenPromise(err error) bool {
	return errors.Is(err, ErrBrokenPromise)
}

// Wrap adds context to err, preserving it as the %w cause. A nil err
// produces a nil result.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is is a re-export of errors.Is, kept for symmetry with Wrap/Wrapf so
// callers need only import this package for common error operations.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
