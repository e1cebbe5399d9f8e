// Package traffic implements the admission-control layer the DAG engine
// uses before running any node: a priority queue sitting in front of a
// fixed concurrency cap.
package traffic

import (
	"container/heap"
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Priority is one of four admission classes. Lower values win; ties
// break FIFO on arrival order.
type Priority int

const (
	VIP Priority = iota
	HIGH
	STANDARD
	BULK
)

// PriorityForKind derives a Priority from a node kind, per §4.1 step 1:
// director/system nodes jump the queue, critic/auditor nodes yield to
// everything else, all other kinds are STANDARD.
func PriorityForKind(kind string) Priority {
	switch kind {
	case "director", "system":
		return VIP
	case "critic", "auditor":
		return BULK
	default:
		return STANDARD
	}
}

// ticket is one waiter in the priority heap.
type ticket struct {
	priority Priority
	seq      uint64 // monotonic arrival order, the FIFO tie-breaker
	name     string
	ready    chan struct{}
	index    int
}

type ticketHeap []*ticket

func (h ticketHeap) Len() int { return len(h) }
func (h ticketHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h ticketHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *ticketHeap) Push(x interface{}) {
	t := x.(*ticket)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *ticketHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Controller is a process-global admission gate: a fixed concurrency cap
// (default 1) guarded by a strict-priority, FIFO-tie-broken wait queue,
// with a pause gate that blocks new acquisitions while letting in-flight
// slots finish undisturbed.
type Controller struct {
	mu       sync.Mutex
	sem      *semaphore.Weighted
	active   int64
	queue    ticketHeap
	nextSeq  uint64
	pausedCh chan struct{} // closed while NOT paused; replaced on pause
	paused   bool
}

// New creates a Controller with the given concurrency cap. A cap <= 0 is
// treated as 1, matching the original's single-flight-by-default posture.
// The cap is fixed for the life of the Controller (§9 Open Question: the
// concurrency cap is advisory-fixed-per-instance, not live-reconfigurable).
func New(maxConcurrency int) *Controller {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	c := &Controller{
		sem:      semaphore.NewWeighted(int64(maxConcurrency)),
		pausedCh: make(chan struct{}),
	}
	close(c.pausedCh) // start unpaused: a closed channel never blocks a receive
	return c
}

// Acquire blocks until a slot is available, the controller is unpaused,
// and the caller is the highest-priority waiter (or the fast path applies
// because the queue was empty and a slot was free). Returns ctx.Err() if
// ctx is cancelled first.
func (c *Controller) Acquire(ctx context.Context, name string, priority Priority) error {
	for {
		c.mu.Lock()
		pausedCh := c.pausedCh
		c.mu.Unlock()
		select {
		case <-pausedCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		if len(c.queue) == 0 {
			// Fast path: try the semaphore without actually waiting in line.
			if c.sem.TryAcquire(1) {
				c.active++
				c.mu.Unlock()
				return nil
			}
		}
		t := &ticket{priority: priority, seq: c.nextSeq, name: name, ready: make(chan struct{})}
		c.nextSeq++
		heap.Push(&c.queue, t)
		c.mu.Unlock()

		select {
		case <-t.ready:
			// dispatchNext already incremented active and handed us the slot.
			return nil
		case <-ctx.Done():
			c.mu.Lock()
			c.removeTicket(t)
			c.mu.Unlock()
			return ctx.Err()
		}
	}
}

func (c *Controller) removeTicket(t *ticket) {
	if t.index >= 0 && t.index < len(c.queue) && c.queue[t.index] == t {
		heap.Remove(&c.queue, t.index)
	}
}

// Release returns a slot and wakes the highest-priority waiter, if any.
func (c *Controller) Release() {
	c.mu.Lock()
	c.active--
	c.sem.Release(1)
	c.mu.Unlock()
	c.dispatchNext()
}

// dispatchNext hands a freed slot to the next ticket, if the queue is
// non-empty and a slot is actually available.
func (c *Controller) dispatchNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return
	}
	if !c.sem.TryAcquire(1) {
		return
	}
	t := heap.Pop(&c.queue).(*ticket)
	c.active++
	close(t.ready)
}

// Pause blocks new acquisitions; in-flight slots are unaffected.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.pausedCh = make(chan struct{})
}

// Resume unblocks new acquisitions and kicks the dispatcher in case
// waiters queued up while paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	close(c.pausedCh)
	c.mu.Unlock()
	c.dispatchNext()
}

// ActiveCount returns the number of slots currently held.
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.active)
}

// QueueDepth returns the number of waiters currently parked.
func (c *Controller) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
