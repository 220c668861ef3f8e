package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBlock_RunsToCompletion(t *testing.T) {
	e := NewExecutor(2, time.Second)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey("trace"), "abc"))
	got, err := Block(ctx, e, func(wctx context.Context) (string, error) {
		// Caller cancellation does not reach the worker
		cancel()
		time.Sleep(10 * time.Millisecond)
		if err := wctx.Err(); err != nil {
			return "", err
		}
		if !Active(wctx) {
			return "", errors.New("worker context not marked")
		}
		return wctx.Value(ctxKey("trace")).(string), nil
	})
	if err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if got != "abc" {
		t.Errorf("Block() = %q, want caller values to be kept", got)
	}
}

type ctxKey string

func TestBlock_Timeout(t *testing.T) {
	e := NewExecutor(1, 20*time.Millisecond)

	_, err := Block(context.Background(), e, func(wctx context.Context) (int, error) {
		<-wctx.Done()
		return 0, wctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Block() error = %v, want deadline exceeded", err)
	}
}

func TestBlock_RefusesReentrantCall(t *testing.T) {
	// A single worker makes a nested wait deadlock unless it is refused
	e := NewExecutor(1, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := Block(context.Background(), e, func(wctx context.Context) (int, error) {
			return Block(wctx, e, func(context.Context) (int, error) { return 1, nil })
		})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrReentrant) {
			t.Errorf("nested Block() error = %v, want ErrReentrant", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nested Block() deadlocked")
	}
}

func TestBlock_BoundsWorkers(t *testing.T) {
	e := NewExecutor(2, time.Second)
	var active, peak atomic.Int64

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			Block(context.Background(), e, func(context.Context) (struct{}, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return struct{}{}, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	if p := peak.Load(); p > 2 {
		t.Errorf("peak workers = %d, want <= 2", p)
	}
	if e.Workers() != 2 {
		t.Errorf("Workers() = %d, want 2", e.Workers())
	}
}

func TestAwait(t *testing.T) {
	got, err := Await(context.Background(), func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("Await() = %d, %v, want 42, nil", got, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = Await(ctx, func() (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Await() returned after %v, want return at the deadline", elapsed)
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned different executors")
	}
	if Default().Workers() < 1 {
		t.Errorf("Default().Workers() = %d, want >= 1", Default().Workers())
	}
}
