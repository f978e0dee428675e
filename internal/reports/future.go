package reports

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

var errPoolStopped = errors.New("report manager stopped")

// Future is the result of a task running on the manager's pool.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func failedFuture[T any](err error) *Future[T] {
	f := newFuture[T]()
	f.complete(*new(T), err)
	return f
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done. Giving up on the wait
// does not cancel the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	return &pool{sem: semaphore.NewWeighted(int64(workers))}
}

// acquire takes a worker slot and registers the task as in flight.
func (p *pool) acquire(ctx context.Context) error {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return errPoolStopped
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return err
	}
	return nil
}

func (p *pool) release() {
	p.sem.Release(1)
	p.wg.Done()
}

func (p *pool) reopen() {
	p.mu.Lock()
	p.stopped = false
	p.mu.Unlock()
}

// stop refuses new tasks and waits for the running ones.
func (p *pool) stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run schedules task on p. It fails without running task when the pool is
// stopped or ctx ends before a slot frees up. Otherwise finish sees every
// result, a recovered panic included, and its error completes the future.
func run[T any](ctx context.Context, p *pool, task func(ctx context.Context) (T, error), finish func(T, error) error) (*Future[T], error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	f := newFuture[T]()
	go func() {
		defer p.release()
		value, err := protect(ctx, task)
		f.complete(value, finish(value, err))
	}()
	return f, nil
}

func protect[T any](ctx context.Context, task func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = *new(T)
			err = errors.Errorf("report task panic: %v", r)
		}
	}()
	return task(ctx)
}
