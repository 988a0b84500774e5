// Package runtime implements a single-threaded cooperative dispatcher: a
// timer heap, a FIFO of ready callbacks, and the Future[T] type that
// threads results and errors through await points.
package runtime

import (
	"container/heap"
	"sync"
	"time"
)

// ReadinessSource is the platform socket layer underneath the dispatcher.
// The dispatcher only needs to be able to ask it "wait up to this long,
// then tell me which registrations became ready".
type ReadinessSource interface {
	// Poll blocks for at most timeout (zero means "don't block at all",
	// negative means "block indefinitely"), then invokes ready for every
	// registration that became ready.
	Poll(timeout time.Duration, ready func(udata any))
	// Empty reports whether there are no outstanding registrations, used
	// by the dispatcher to avoid blocking forever on an idle loop.
	Empty() bool
}

type timerEntry struct {
	deadline time.Time
	seq      uint64
	fire     func()
	cancelled bool
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	item.index = -1
	*h = old[:n-1]
	return item
}

// Dispatcher is the process's single event loop: one monotonic timer heap,
// one FIFO of ready callbacks, and a readiness source. There is one per
// worker, constructed explicitly by New (nothing creates one lazily or
// implicitly), and it is never re-entered (no callback runs while another
// is on the stack — they are drained sequentially).
type Dispatcher struct {
	timers  timerHeap
	ready   []func()
	readyMu sync.Mutex
	seq     uint64
	readi   ReadinessSource
	running bool
}

// New constructs a fresh dispatcher. Tests should prefer this over a shared
// global so that each test gets isolation.
func New(readiness ReadinessSource) *Dispatcher {
	return &Dispatcher{readi: readiness}
}

// enqueue appends to the ready FIFO. The dispatcher's callbacks always run
// one at a time, but blocking I/O is bridged through background goroutines
// (the UDP writer loop) that legitimately call back into the
// dispatcher from outside its own Poll call, so the FIFO itself needs a
// lock even though no *callback* ever runs concurrently with another —
// only the enqueue operation is genuinely concurrent.
func (d *Dispatcher) enqueue(cb func()) {
	d.readyMu.Lock()
	d.ready = append(d.ready, cb)
	d.readyMu.Unlock()
}

func (d *Dispatcher) dequeueAll() []func() {
	d.readyMu.Lock()
	defer d.readyMu.Unlock()

	if len(d.ready) == 0 {
		return nil
	}

	batch := d.ready
	d.ready = nil
	return batch
}

func (d *Dispatcher) readyLen() int {
	d.readyMu.Lock()
	defer d.readyMu.Unlock()
	return len(d.ready)
}

// addTimer inserts a timer and returns a handle usable for O(log n)
// cancellation.
func (d *Dispatcher) addTimer(deadline time.Time, fire func()) *timerEntry {
	d.seq++
	e := &timerEntry{deadline: deadline, seq: d.seq, fire: fire}
	heap.Push(&d.timers, e)
	return e
}

func (d *Dispatcher) cancelTimer(e *timerEntry) {
	e.cancelled = true
	// the entry tracks its own heap position, so removing it is O(log n);
	// an entry that already left the heap (fired) has index -1.
	if e.index >= 0 && e.index < len(d.timers) && d.timers[e.index] == e {
		heap.Remove(&d.timers, e.index)
	}
}

// Poll advances the loop by one step: fire due timers, poll readiness,
// then drain the ready FIFO.
func (d *Dispatcher) Poll() {
	now := time.Now()

	// (1) fire every timer whose deadline <= now, heap order (ties by
	// insertion order, guaranteed by timerHeap.Less).
	for d.timers.Len() > 0 {
		top := d.timers[0]
		if top.cancelled {
			heap.Pop(&d.timers)
			continue
		}
		if top.deadline.After(now) {
			break
		}

		heap.Pop(&d.timers)
		d.enqueue(top.fire)
	}

	// (2)+(3) query the readiness source; timeout bounded by the next
	// timer deadline, or zero if callbacks are already pending.
	timeout := d.nextTimeout(now)
	if d.readyLen() > 0 {
		timeout = 0
	}

	if !d.readi.Empty() || timeout == 0 {
		d.readi.Poll(timeout, func(udata any) {
			if cb, ok := udata.(func()); ok {
				d.enqueue(cb)
			}
		})
	} else if timeout > 0 {
		// nothing to wait on except a timer: sleep for it directly so
		// that poll() doesn't busy-spin.
		time.Sleep(timeout)
	}

	// (4) drain the ready FIFO completely before returning. Callbacks
	// may themselves enqueue more work; that work is drained too, within
	// this same Poll call, so Poll returns only once the FIFO is empty (a
	// callback that always enqueues more keeps Poll from returning).
	for {
		batch := d.dequeueAll()
		if batch == nil {
			return
		}

		for _, cb := range batch {
			cb()
		}
	}
}

func (d *Dispatcher) nextTimeout(now time.Time) time.Duration {
	for d.timers.Len() > 0 {
		top := d.timers[0]
		if top.cancelled {
			heap.Pop(&d.timers)
			continue
		}

		if remaining := top.deadline.Sub(now); remaining > 0 {
			return remaining
		}

		return 0
	}

	return -1 // no timers: block indefinitely on readiness (or return if idle)
}

// RunForever loops Poll indefinitely. Intended for the process's main
// dispatch goroutine.
func (d *Dispatcher) RunForever() {
	d.running = true
	for d.running {
		d.Poll()
	}
}

// Stop ends a RunForever loop after its current Poll returns.
func (d *Dispatcher) Stop() {
	d.running = false
}

// WaitFor loops Poll until fut is terminal, then returns fut.Read().
// This is the synchronous bridge used by tests and by code running outside
// the dispatcher's own callback stack.
func WaitFor[T any](d *Dispatcher, fut *Future[T]) (T, error) {
	for !fut.Done() {
		d.Poll()
	}

	return fut.Read()
}
