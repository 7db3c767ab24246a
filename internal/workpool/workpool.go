// Package workpool provides a capacity-bounded task pool shared by every
// page of an import run.
package workpool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Do once Close has been called.
var ErrClosed = errors.New("workpool: closed")

// Pool bounds the number of tasks running at once across all callers.
// Tasks run on the calling goroutine once a slot is free.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates a pool that runs at most capacity tasks concurrently.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of concurrent tasks.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Do waits for a free slot and runs fn in it. It returns ErrClosed after
// Close, or the context error if ctx ends while waiting.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context)) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	fn(ctx)
	return nil
}

// Close stops accepting tasks and waits for the running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.inflight.Wait()
}
