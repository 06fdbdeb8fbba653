package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const defaultPoolSize = 4

// Task is a unit of blocking work run on the pool.
type Task func(ctx context.Context) (string, error)

// Pool runs blocking calls on a bounded set of goroutines so a slow upstream
// cannot pile up unbounded work.
type Pool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a pool running at most size tasks at once.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = defaultPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    make(chan struct{}, size),
		logger: logger,
	}
}

// Future is the pending result of a submitted Task.
type Future struct {
	done chan struct{}
	val  string
	err  error
}

// Await blocks until the task finishes or ctx is done.
func (f *Future) Await(ctx context.Context) (string, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Submit waits for a free slot and starts fn on its own goroutine.
// If ctx ends before a slot frees up, the returned Future already holds ctx.Err().
// A panic inside fn is returned as the Future's error.
func (p *Pool) Submit(ctx context.Context, fn Task) *Future {
	f := &Future{done: make(chan struct{})}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		f.err = ctx.Err()
		close(f.done)
		return f
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		defer close(f.done)
		defer func() {
			if v := recover(); v != nil {
				p.logger.Error("pool task panicked", "panic", v)
				f.err = fmt.Errorf("task panicked: %v", v)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Active returns the number of running tasks.
func (p *Pool) Active() int { return len(p.sem) }

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() { p.wg.Wait() }
