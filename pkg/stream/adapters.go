package stream

import (
	"io"
	"iter"
	"strings"
)

// Chunk is the constraint for streams of text.
type Chunk interface {
	~string | ~[]byte
}

// All returns an iterator over the items of s. The stream is closed when
// iteration stops, early or not. Check s.Err() afterwards.
func All[T any](s Stream[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		defer s.Close()
		for {
			v, ok := s.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect drains s into a slice.
func Collect[T any](s Stream[T]) ([]T, error) {
	defer s.Close()
	var out []T
	for {
		v, ok := s.Next()
		if !ok {
			return out, s.Err()
		}
		out = append(out, v)
	}
}

// String drains s and concatenates its chunks.
func String[T Chunk](s Stream[T]) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for {
		v, ok := s.Next()
		if !ok {
			return sb.String(), s.Err()
		}
		sb.WriteString(string(v))
	}
}

// WriteTo drains s into w. If w has a Flush method it is called after
// every chunk, so an HTTP client sees output as it is produced.
func WriteTo[T Chunk](w io.Writer, s Stream[T]) (int64, error) {
	defer s.Close()
	flusher, _ := w.(interface{ Flush() })

	var total int64
	for {
		v, ok := s.Next()
		if !ok {
			return total, s.Err()
		}
		n, err := io.WriteString(w, string(v))
		total += int64(n)
		if err != nil {
			return total, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Forward re-emits every item of s on out. It is how one template embeds
// another. If the consumer goes away, s is closed and ErrStopped returned.
func Forward[T any](out Emitter[T], s Stream[T]) error {
	defer s.Close()
	for {
		v, ok := s.Next()
		if !ok {
			return s.Err()
		}
		if !out.Emit(v) {
			return ErrStopped
		}
	}
}

// Reader returns an io.ReadCloser over the chunks of s.
func Reader[T Chunk](s Stream[T]) io.ReadCloser {
	return &reader[T]{s: s}
}

type reader[T Chunk] struct {
	s    Stream[T]
	buf  []byte
	done bool
}

func (r *reader[T]) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.done {
			return 0, io.EOF
		}
		v, ok := r.s.Next()
		if !ok {
			r.done = true
			if err := r.s.Err(); err != nil {
				return 0, err
			}
			continue
		}
		r.buf = append(r.buf[:0], v...)
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *reader[T]) Close() error {
	return r.s.Close()
}

// Coalesce wraps s so that small chunks are merged into chunks of at least
// size bytes. The final chunk may be shorter. A size of one or less
// returns s unchanged.
func Coalesce[T Chunk](s Stream[T], size int) Stream[T] {
	if size <= 1 {
		return s
	}
	return &coalescer[T]{s: s, size: size}
}

type coalescer[T Chunk] struct {
	s    Stream[T]
	size int
	buf  []byte
}

func (c *coalescer[T]) Next() (T, bool) {
	var zero T
	for len(c.buf) < c.size {
		v, ok := c.s.Next()
		if !ok {
			break
		}
		c.buf = append(c.buf, v...)
	}
	if len(c.buf) == 0 {
		return zero, false
	}
	out := T(c.buf)
	c.buf = nil
	return out, true
}

func (c *coalescer[T]) Err() error   { return c.s.Err() }
func (c *coalescer[T]) Close() error { return c.s.Close() }
