package traffic

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireFastPathWhenQueueEmpty(t *testing.T) {
	c := New(1)
	ctx := context.Background()
	if err := c.Acquire(ctx, "a", STANDARD); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if c.ActiveCount() != 1 {
		t.Fatalf("expected active count 1, got %d", c.ActiveCount())
	}
	c.Release()
	if c.ActiveCount() != 0 {
		t.Fatalf("expected active count 0 after release, got %d", c.ActiveCount())
	}
}

func TestHigherPriorityDispatchedFirst(t *testing.T) {
	c := New(1)
	ctx := context.Background()

	if err := c.Acquire(ctx, "holder", STANDARD); err != nil {
		t.Fatalf("acquire holder: %v", err)
	}

	order := make(chan string, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_ = c.Acquire(ctx, "bulk", BULK)
		order <- "bulk"
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		_ = c.Acquire(ctx, "vip", VIP)
		order <- "vip"
		c.Release() // hand the slot on so the BULK waiter can finish
	}()

	// give both goroutines time to enqueue behind the held slot
	time.Sleep(50 * time.Millisecond)
	c.Release()
	wg.Wait()
	close(order)

	first := <-order
	if first != "vip" {
		t.Fatalf("expected VIP to be dispatched before BULK, got %q first", first)
	}
}

func TestPauseBlocksNewAcquisitions(t *testing.T) {
	c := New(2)
	c.Pause()

	acquired := make(chan struct{})
	go func() {
		_ = c.Acquire(context.Background(), "waiter", STANDARD)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("acquire should not complete while paused")
	case <-time.After(30 * time.Millisecond):
	}

	c.Resume()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("acquire did not complete after resume")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	c := New(1)
	_ = c.Acquire(context.Background(), "holder", STANDARD)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Acquire(ctx, "waiter", STANDARD); err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
