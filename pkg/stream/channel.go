package stream

import "context"

type channelState int

const (
	stateRunning  channelState = iota // Producer may still emit
	stateDraining                     // Producer returned; queue may hold one item
	stateDone
)

// channelStream runs the producer on its own goroutine. Items travel over
// a channel of capacity one, which is what holds the producer back.
type channelStream[T any] struct {
	items  chan T
	done   chan struct{} // Closed when the producer has returned
	state  channelState
	parent context.Context
	cancel context.CancelFunc
	err    error // Written by the producer goroutine before done is closed
}

// NewChannel creates a stream that runs produce on a new goroutine.
func NewChannel[T any](ctx context.Context, produce Producer[T]) Stream[T] {
	inner, cancel := context.WithCancel(ctx)
	c := &channelStream[T]{
		items:  make(chan T, 1),
		done:   make(chan struct{}),
		parent: ctx,
		cancel: cancel,
	}

	go func() {
		defer close(c.done)
		c.err = run(inner, produce, chanEmitter[T]{ctx: inner, items: c.items})
	}()
	return c
}

func (c *channelStream[T]) Next() (T, bool) {
	var zero T

	if c.state == stateRunning {
		select {
		case v := <-c.items:
			return v, true
		case <-c.done:
			// The producer may have queued a final item just before
			// returning; it must still be delivered.
			c.state = stateDraining
		}
	}

	if c.state == stateDraining {
		select {
		case v := <-c.items:
			return v, true
		default:
			c.state = stateDone
			c.err = finalErr(c.parent, c.err)
			c.cancel()
		}
	}

	return zero, false
}

func (c *channelStream[T]) Err() error {
	if c.state != stateDone {
		return nil
	}
	return c.err
}

// Close cancels the producer and waits for it to return.
func (c *channelStream[T]) Close() error {
	if c.state == stateDone {
		return nil
	}
	c.cancel()
	<-c.done
	c.state = stateDone
	c.err = nil
	return nil
}

// chanEmitter is the Emitter handed to a channel producer.
type chanEmitter[T any] struct {
	ctx   context.Context
	items chan<- T
}

func (e chanEmitter[T]) Emit(v T) bool {
	if e.ctx.Err() != nil {
		return false
	}
	select {
	case e.items <- v:
		return true
	case <-e.ctx.Done():
		return false
	}
}
