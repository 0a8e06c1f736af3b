package stream

import (
	"context"
	"iter"
)

// Slot holds at most one item. It is the only channel of communication
// between a cooperative producer and its consumer.
type Slot[T any] struct {
	item T
	full bool
}

// Put fills the slot. It panics if the slot is already full; the
// cooperative bridge never lets that happen.
func (s *Slot[T]) Put(v T) {
	if s.full {
		panic("stream: slot already full")
	}
	s.item, s.full = v, true
}

// Take empties the slot and returns its item, if any.
func (s *Slot[T]) Take() (T, bool) {
	var zero T
	if !s.full {
		return zero, false
	}
	v := s.item
	s.item, s.full = zero, false
	return v, true
}

// Full reports whether the slot holds an item.
func (s *Slot[T]) Full() bool {
	return s.full
}

// cooperative runs the producer as a coroutine. Emit fills the slot and
// suspends the producer; Next resumes it and drains the slot. Only Next
// resumes the producer and it always drains first, so the slot can never
// be overwritten.
type cooperative[T any] struct {
	slot   *Slot[T]
	resume func() (struct{}, bool)
	stop   func()
	parent context.Context
	cancel context.CancelFunc
	err    error
	done   bool
}

// NewCooperative creates a stream that runs produce on the consumer's
// goroutine, switching between the two at every Emit.
func NewCooperative[T any](ctx context.Context, produce Producer[T]) Stream[T] {
	inner, cancel := context.WithCancel(ctx)
	c := &cooperative[T]{
		slot:   &Slot[T]{},
		parent: ctx,
		cancel: cancel,
	}

	var seq iter.Seq[struct{}] = func(yield func(struct{}) bool) {
		out := &slotEmitter[T]{ctx: inner, slot: c.slot, yield: yield}
		c.err = run(inner, produce, out)
	}
	c.resume, c.stop = iter.Pull(seq)
	return c
}

func (c *cooperative[T]) Next() (T, bool) {
	var zero T
	if c.done {
		return zero, false
	}

	c.resume()
	if v, ok := c.slot.Take(); ok {
		return v, true
	}

	// The producer returned without filling the slot.
	c.finish()
	return zero, false
}

func (c *cooperative[T]) finish() {
	c.done = true
	c.err = finalErr(c.parent, c.err)
	c.stop()
	c.cancel()
}

func (c *cooperative[T]) Err() error {
	if !c.done {
		return nil
	}
	return c.err
}

func (c *cooperative[T]) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	c.cancel()
	c.stop()
	return nil
}

// slotEmitter is the Emitter handed to a cooperative producer.
type slotEmitter[T any] struct {
	ctx     context.Context
	slot    *Slot[T]
	yield   func(struct{}) bool
	stopped bool
}

func (e *slotEmitter[T]) Emit(v T) bool {
	if e.stopped || e.ctx.Err() != nil {
		return false
	}
	e.slot.Put(v)
	if !e.yield(struct{}{}) {
		e.stopped = true
		return false
	}
	return true
}
