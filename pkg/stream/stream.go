// Package stream turns a producer that pushes items into a sequence the
// consumer pulls from.
//
// Generated templates are written as straight-line producers: they call
// Emit for every chunk of output, in order. A Stream hands those chunks to
// the consumer one at a time. At most one item is ever in flight, so a
// slow consumer holds the producer back.
//
// Two bridges are provided. NewCooperative runs the producer as a
// coroutine on the consumer's goroutine; NewChannel runs it on its own
// goroutine and connects the two with a channel of capacity one. Both
// deliver every item, including the last one emitted before the producer
// returns.
package stream

import (
	"context"
	"errors"
	"fmt"
)

// Stream is a pull-based sequence of items.
//
// Next returns the next item, or false once the sequence has ended. Err
// reports why it ended and is only meaningful after Next returned false.
// Close releases the producer early; it is safe to call more than once and
// after the sequence has ended.
type Stream[T any] interface {
	Next() (T, bool)
	Err() error
	Close() error
}

// Emitter receives items from a producer. Emit returns false once the
// consumer has gone away; the producer should then return.
type Emitter[T any] interface {
	Emit(T) bool
}

// EmitterFunc adapts a function to an Emitter.
type EmitterFunc[T any] func(T) bool

// Emit calls f(v).
func (f EmitterFunc[T]) Emit(v T) bool { return f(v) }

// Producer generates items by calling out.Emit.
type Producer[T any] func(ctx context.Context, out Emitter[T]) error

// ErrStopped may be returned by a producer that stopped because Emit
// returned false. Streams treat it as a clean finish.
var ErrStopped = errors.New("stream: consumer stopped")

// Bridge selects a Stream implementation.
type Bridge string

// Bridge constants.
const (
	Cooperative Bridge = "cooperative"
	Channel     Bridge = "channel"
)

// Bridges lists the valid bridge names.
var Bridges = []Bridge{Cooperative, Channel}

// New creates a stream over produce with the given bridge.
func New[T any](ctx context.Context, bridge Bridge, produce Producer[T]) (Stream[T], error) {
	switch bridge {
	case Cooperative:
		return NewCooperative(ctx, produce), nil
	case Channel:
		return NewChannel(ctx, produce), nil
	default:
		return nil, fmt.Errorf("stream: unknown bridge %q", bridge)
	}
}

// run calls produce and converts a panic into an error.
func run[T any](ctx context.Context, produce Producer[T], out Emitter[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stream: producer panicked: %v", r)
		}
	}()
	err = produce(ctx, out)
	if errors.Is(err, ErrStopped) {
		err = nil
	}
	return err
}

// finalErr is the error a stream reports once its producer has returned:
// the producer's own error, or the parent context's error if the
// producer stopped quietly because of it.
func finalErr(parent context.Context, err error) error {
	if err != nil {
		return err
	}
	return parent.Err()
}
