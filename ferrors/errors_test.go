package ferrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	err := errors.New("original")
	wrapped := Wrap(err, "context")

	if wrapped.Error() != "context: original" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
	if !errors.Is(wrapped, err) {
		t.Error("Wrap should preserve the cause for errors.Is")
	}
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	err := errors.New("original")
	wrapped := Wrapf(err, "context %d", 42)

	if wrapped.Error() != "context 42: original" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
	if Wrapf(nil, "context %d", 42) != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
}

func TestIs(t *testing.T) {
	target := errors.New("target")
	wrapped := Wrap(target, "context")

	if !Is(wrapped, target) {
		t.Error("Is should find the wrapped target")
	}
	if Is(wrapped, errors.New("other")) {
		t.Error("Is should not match an unrelated error")
	}
}

func TestIsBrokenPromise(t *testing.T) {
	if !IsBrokenPromise(ErrBrokenPromise) {
		t.Error("expected ErrBrokenPromise to report true")
	}
	if !IsBrokenPromise(Wrap(ErrBrokenPromise, "future abandoned")) {
		t.Error("expected a wrapped ErrBrokenPromise to still report true")
	}
	if IsBrokenPromise(errors.New("unrelated")) {
		t.Error("expected an unrelated error to report false")
	}
}

func TestExceptionHandleWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	h := NewExceptionHandle(cause)

	if h.Error() != "boom" {
		t.Errorf("unexpected message: %q", h.Error())
	}
	if !errors.Is(h, cause) {
		t.Error("ExceptionHandle should unwrap to its cause")
	}
}

func TestExceptionHandleFromPanicWithError(t *testing.T) {
	cause := errors.New("bad input")
	h := NewExceptionHandleFromPanic(cause)

	if !errors.Is(h, cause) {
		t.Error("expected the recovered error to remain unwrappable")
	}
}

func TestExceptionHandleFromPanicWithNonError(t *testing.T) {
	h := NewExceptionHandleFromPanic("string panic")

	if h.Error() == "" {
		t.Error("expected a non-empty message for a non-error panic value")
	}
	var asExceptionHandle ExceptionHandle
	if !errors.As(error(h), &asExceptionHandle) {
		t.Error("expected errors.As to recognize ExceptionHandle")
	}
}
