// Package future implements the future/promise continuation engine: a
// shared state holding a single-assignment result, a Promise producer
// handle, a Future consumer handle supporting split/join composition
// (Then, Recover, fan-out), automatic flattening of a future-returning
// continuation (reduction), and compositors (Ready, WhenAll2, WhenAll3,
// WhenAllSlice).
//
// Every operation is parameterized by an [executor.Executor] supplied by
// the caller; the package itself never blocks a submitted task, and the
// only place it spawns goroutines is the blocking CollectErrors helper,
// which waits on its inputs from goroutines of its own.
//
// Basic usage:
//
//	f := future.Async(executor.Immediate, func() (int, error) { return 42, nil })
//	g := future.Then(f, executor.Immediate, func(v int) (int, error) { return v + 1, nil })
//	v, err := g.Value()
package future
