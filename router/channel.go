package router

import (
	"sync"

	"github.com/everyday-items/flowkit/executor"
)

// Sender is the minimal write side of a channel: push a value, later to
// be delivered to the matching Receiver on the channel's executor.
type Sender[T any] interface {
	Send(v T)
}

// Receiver is the minimal read side: a channel to range/select over, and
// SetReady to arm delivery of whatever was sent before the receiver had a
// consumer attached.
type Receiver[T any] interface {
	SetReady()
	C() <-chan T
}

// chanCore is the shared state behind one Sender/Receiver pair. Values
// sent before SetReady are buffered rather than dropped; SetReady is what
// first allows queued values to actually flow to the consumer.
type chanCore[T any] struct {
	mu      sync.Mutex
	ready   bool
	pending []T
	ch      chan T
	exec    executor.Executor
}

type senderHandle[T any] struct{ c *chanCore[T] }
type receiverHandle[T any] struct{ c *chanCore[T] }

// NewChannel creates a Sender/Receiver pair whose delivery is driven by
// exec.
func NewChannel[T any](exec executor.Executor) (Sender[T], Receiver[T]) {
	c := &chanCore[T]{ch: make(chan T, 64), exec: exec}
	return senderHandle[T]{c}, receiverHandle[T]{c}
}

func (s senderHandle[T]) Send(v T) {
	c := s.c
	c.mu.Lock()
	if !c.ready {
		c.pending = append(c.pending, v)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.exec.Submit(func() { c.ch <- v })
}

func (r receiverHandle[T]) SetReady() {
	c := r.c
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return
	}
	c.ready = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, v := range pending {
		v := v
		c.exec.Submit(func() { c.ch <- v })
	}
}

func (r receiverHandle[T]) C() <-chan T {
	return r.c.ch
}
