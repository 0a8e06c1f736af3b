package starlark

import (
	"math"
	"sync"

	"go.starlark.net/starlark"
)

// ThreadPool manages a pool of Starlark threads for concurrent renders.
type ThreadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
}

// NewThreadPool creates a new thread pool with the specified maximum size.
func NewThreadPool(maxSize int) *ThreadPool {
	if maxSize <= 0 {
		maxSize = 10
	}
	return &ThreadPool{
		threads: make([]*starlark.Thread, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a thread from the pool or creates a new one. The name is
// used for error reporting. maxSteps bounds the computation; zero means
// no bound.
func (p *ThreadPool) Get(name string, maxSteps uint64) *starlark.Thread {
	p.mu.Lock()
	var thread *starlark.Thread
	if n := len(p.threads); n > 0 {
		thread = p.threads[n-1]
		p.threads = p.threads[:n-1]
	}
	p.mu.Unlock()

	if thread == nil {
		thread = &starlark.Thread{}
	}
	thread.Name = name
	thread.Print = func(*starlark.Thread, string) {}
	if maxSteps == 0 {
		maxSteps = math.MaxUint64
	}
	thread.SetMaxExecutionSteps(maxSteps)
	return thread
}

// Put returns a thread to the pool for reuse. If the pool is full, the
// thread is discarded.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	thread.Name = ""
	thread.Print = nil
	thread.Steps = 0
	thread.Uncancel()
	thread.SetLocal(emitterKey, nil)

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.threads) < p.maxSize {
		p.threads = append(p.threads, thread)
	}
}

// Size returns the current number of threads in the pool.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
