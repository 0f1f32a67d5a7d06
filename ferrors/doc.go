// Package ferrors provides the error taxonomy shared by the future, router,
// and executor packages: a distinguished broken-promise error, an opaque
// exception handle for carrying arbitrary rejection values, and wrap/walk
// helpers in the style of a typical internal errorx package.
//
// Basic usage:
//
//	if ferrors.Is(err, ferrors.ErrBrokenPromise) {
//	    // the chain's root promise was abandoned before it ran
//	}
package ferrors
