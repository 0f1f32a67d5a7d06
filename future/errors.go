package future

import "github.com/everyday-items/flowkit/ferrors"

// errInvalidFuture is returned by operations on a zero-valued Future,
// e.g. one produced by a failed type assertion in a compositor.
var errInvalidFuture = ferrors.Wrap(ferrors.ErrMisuse, "future: invalid future")
