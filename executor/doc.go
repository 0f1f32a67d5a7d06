// Package executor defines the executor contract that parameterizes every
// future, promise, and router in this module, plus a handful of concrete
// executors: an immediate executor for tests and no-hop continuations, a
// goroutine-pool executor, and an asynq-backed executor that schedules
// work onto a distributed task queue.
//
// The library itself never assumes callables submitted to the same
// executor run in any particular order, or even on the same goroutine;
// that is left entirely to the executor implementation.
package executor
