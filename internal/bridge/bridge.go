// Package bridge converts between the two ways an extraction can be written.
//
// A context-native function runs cooperatively on the caller's goroutine and
// gives up as soon as its context is done. A blocking function takes no
// context and returns when it is finished. Block drives the former to
// completion on a dedicated worker; Await makes the latter observable through
// a context.
package bridge

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrReentrant is returned when Block is called from inside one of its own
// workers. The caller would hold a worker slot while waiting for another one,
// which deadlocks once the pool is exhausted.
var ErrReentrant = errors.New("blocking call started from inside a blocking worker")

// DefaultTimeout bounds a blocking call when the executor has no explicit timeout
const DefaultTimeout = 30 * time.Second

type workerKey struct{}

// Active reports whether ctx was handed out by an executor worker
func Active(ctx context.Context) bool {
	_, ok := ctx.Value(workerKey{}).(*Executor)
	return ok
}

// Executor runs context-native functions to completion on a bounded set of
// dedicated worker goroutines.
type Executor struct {
	sem     *semaphore.Weighted
	workers int64
	timeout time.Duration
}

var (
	defaultExec *Executor
	defaultOnce sync.Once
)

// Default returns the process-wide executor sized to GOMAXPROCS
func Default() *Executor {
	defaultOnce.Do(func() {
		defaultExec = NewExecutor(runtime.GOMAXPROCS(0), DefaultTimeout)
	})
	return defaultExec
}

// NewExecutor creates an executor with the given number of workers.
// Every call it runs gets a fresh deadline of timeout.
func NewExecutor(workers int, timeout time.Duration) *Executor {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: int64(workers),
		timeout: timeout,
	}
}

// Workers returns the size of the worker pool
func (e *Executor) Workers() int { return int(e.workers) }

// Block runs fn on a dedicated worker and waits for it to finish.
//
// fn receives a context that keeps the values of ctx but not its
// cancellation, bounded by the executor timeout, so the call runs to
// completion. Block refuses with ErrReentrant when ctx already belongs to a
// worker.
func Block[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if Active(ctx) {
		return zero, ErrReentrant
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()
	runCtx = context.WithValue(runCtx, workerKey{}, e)

	if err := e.sem.Acquire(runCtx, 1); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer e.sem.Release(1)
		v, err := fn(runCtx)
		done <- result{v, err}
	}()

	r := <-done
	return r.v, r.err
}

// Await runs a blocking fn on its own goroutine and returns when fn is done
// or ctx is, whichever happens first. When ctx wins, fn keeps running until
// its own bound expires and its result is dropped.
func Await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
