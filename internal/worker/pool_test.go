package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newTestPool(workers, queueSize int) *Pool {
	return NewPool(workers, queueSize, zerolog.New(io.Discard))
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := newTestPool(2, 8)
	pool.Start(context.Background())

	var done atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			done.Add(1)
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	pool.Shutdown()

	if got := done.Load(); got != 5 {
		t.Fatalf("tasks run = %d, want 5", got)
	}
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	pool := newTestPool(1, 8)

	var done atomic.Int32
	for i := 0; i < 4; i++ {
		if err := pool.Submit(func(ctx context.Context) { done.Add(1) }); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	// Tasks queued before Start must still run and Shutdown must wait for them.
	pool.Start(context.Background())
	pool.Shutdown()

	if got := done.Load(); got != 4 {
		t.Fatalf("tasks run = %d, want 4", got)
	}
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	pool := newTestPool(1, 1)

	if err := pool.Submit(func(ctx context.Context) {}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := pool.Submit(func(ctx context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("error = %v, want ErrQueueFull", err)
	}

	pool.Start(context.Background())
	pool.Shutdown()
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := newTestPool(1, 1)
	pool.Start(context.Background())
	pool.Shutdown()

	if err := pool.Submit(func(ctx context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("error = %v, want ErrStopped", err)
	}
}

func TestPoolShutdownIsIdempotent(t *testing.T) {
	pool := newTestPool(1, 1)
	pool.Start(context.Background())
	pool.Shutdown()
	pool.Shutdown()
}
