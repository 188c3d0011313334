package workerpool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Submit(t *testing.T) {
	p := New(4)
	defer p.Close()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
	}

	wg.Wait()

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(3)
	defer p.Close()

	var cur, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			n := atomic.AddInt64(&cur, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&cur, -1)
		})
	}
	wg.Wait()

	if peak > 3 {
		t.Errorf("peak concurrency %d exceeds 3 workers", peak)
	}
}

func TestPool_Close(t *testing.T) {
	p := New(4)

	var counter int64
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			atomic.AddInt64(&counter, 1)
		})
	}

	// Close drains queued tasks.
	p.Close()
	if got := atomic.LoadInt64(&counter); got != 10 {
		t.Errorf("Expected 10 completed tasks after Close, got %d", got)
	}
	if p.Submit(func() {}) {
		t.Error("Submit should fail after close")
	}

	// Second close is a no-op.
	p.Close()
}

func TestPool_PanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	p := New(1, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	done := make(chan struct{})
	p.Submit(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped processing after a panic")
	}
	p.Close()
	if !strings.Contains(buf.String(), "worker task panicked") {
		t.Errorf("panic not logged, got %q", buf.String())
	}
}

func TestMapContext_PreservesOrder(t *testing.T) {
	p := New(8)
	defer p.Close()

	items := []int{5, 4, 3, 2, 1, 0}
	got, err := MapContext(context.Background(), p, items, func(_ context.Context, n int) int {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * n
	})
	if err != nil {
		t.Fatalf("MapContext() error = %v", err)
	}

	want := []int{25, 16, 9, 4, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MapContext() = %v, want %v", got, want)
		}
	}
}

func TestMapContext_ClosedPool(t *testing.T) {
	p := New(2)
	p.Close()

	got, err := MapContext(context.Background(), p, []string{"a", "b"}, func(_ context.Context, s string) string { return s + s })
	if err != nil {
		t.Fatalf("MapContext() error = %v", err)
	}
	if got[0] != "" || got[1] != "" {
		t.Errorf("closed pool should leave zero values, got %v", got)
	}
}

func TestMapContext_Complete(t *testing.T) {
	p := New(4)
	defer p.Close()

	got, err := MapContext(context.Background(), p, []string{"x", "y", "z"}, func(_ context.Context, s string) string {
		return s + "!"
	})
	if err != nil {
		t.Fatalf("MapContext() error = %v", err)
	}
	if got[0] != "x!" || got[1] != "y!" || got[2] != "z!" {
		t.Errorf("MapContext() = %v", got)
	}
}

func TestMapContext_Cancelled(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var calls int64
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	got, err := MapContext(ctx, p, items, func(_ context.Context, n int) int {
		if atomic.AddInt64(&calls, 1) == 3 {
			cancel()
		}
		return n + 1
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if c := atomic.LoadInt64(&calls); c >= int64(len(items)) {
		t.Errorf("all %d items ran despite cancellation", c)
	}
	if got[0] != 1 {
		t.Errorf("first result = %d, want 1", got[0])
	}
	if got[len(got)-1] != 0 {
		t.Errorf("last result should be skipped, got %d", got[len(got)-1])
	}
}

func TestMapContext_AlreadyCancelled(t *testing.T) {
	p := New(2)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	_, err := MapContext(ctx, p, []int{1, 2, 3}, func(context.Context, int) int {
		atomic.AddInt64(&calls, 1)
		return 0
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls, got %d", calls)
	}
}
