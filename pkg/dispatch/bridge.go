// Package dispatch implements the cross-thread bridge described in spec
// §4.2: client goroutines post work onto a single engine goroutine, either
// blocking for the result (RunLocked) or firing-and-forgetting (RunAsync),
// and may cooperatively pause the engine's own work (Suspend/Resume).
//
// Grounded on the teacher's WorkerPool (src/worker_pool.go) for the
// queue-and-drain shape, generalized in one important way: the teacher's
// Submit drops a task when the queue is full ("prevents goroutine explosion
// ... instead of spawning unlimited goroutines"). Spec §4.2/§8 requires the
// opposite guarantee for the dispatch bridge — a submitted callback is
// never silently dropped, only event.Ring sends may drop — so both
// RunLocked and RunAsync block the submitter until there is room in the
// queue rather than discarding work.
package dispatch

import (
	"context"
	"sync"
)

// task is a unit of work the engine goroutine executes exactly once.
type task func()

// Bridge is the single-engine-thread message channel. One Bridge exists
// per engine context; its Run method must be driven by exactly one
// goroutine — the "engine thread" of spec §5.
type Bridge struct {
	tasks chan task
	wake  chan struct{}

	mu           sync.Mutex
	cond         *sync.Cond
	suspendCount int
	paused       bool
}

// NewBridge creates a dispatch bridge with the given task queue capacity.
// A larger capacity lets more async submissions queue up before RunAsync
// starts blocking its callers; it does not change the no-drop guarantee.
func NewBridge(queueSize int) *Bridge {
	if queueSize <= 0 {
		queueSize = 1
	}
	b := &Bridge{
		tasks: make(chan task, queueSize),
		wake:  make(chan struct{}, 1),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// RunLocked blocks the caller until the engine thread has run fn exactly
// once. Calls from a single goroutine are executed in submission order
// (spec §4.2).
func (b *Bridge) RunLocked(fn func()) {
	done := make(chan struct{})
	b.tasks <- func() {
		fn()
		close(done)
	}
	<-done
}

// RunAsync enqueues fn for the engine thread and returns once it is queued
// — it does not wait for fn to run. Ordering with other RunAsync/RunLocked
// calls from the same submitting goroutine is FIFO.
func (b *Bridge) RunAsync(fn func()) {
	b.tasks <- task(fn)
}

// Suspend is a reentrant, reference-counted cooperative pause: it blocks
// until the engine thread has stopped ticking its own work (but the
// dispatch queue is still drained while suspended, per spec §4.2). Nested
// Suspend calls increment the same counter; the engine remains suspended
// until a matching number of Resume calls have been made.
func (b *Bridge) Suspend() {
	b.mu.Lock()
	b.suspendCount++
	alreadyPaused := b.paused
	b.mu.Unlock()

	if alreadyPaused {
		return
	}

	select {
	case b.wake <- struct{}{}:
	default:
	}

	b.mu.Lock()
	for !b.paused {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Resume releases one Suspend reference. Calling Resume more times than
// Suspend was called is a fatal programmer error (spec §4.2: "Unbalanced
// resume ... is a fatal programmer error") and panics, mirroring how the
// standard library panics on an unbalanced sync.Mutex.Unlock.
func (b *Bridge) Resume() {
	b.mu.Lock()
	if b.suspendCount == 0 {
		b.mu.Unlock()
		panic("dispatch: Resume called more times than Suspend")
	}
	b.suspendCount--
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// SuspendCount reports the current reentrant suspend depth. Intended for
// tests and diagnostics.
func (b *Bridge) SuspendCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suspendCount
}

// Run drives the engine thread: it repeatedly drains queued tasks, honors
// suspension, and — when not suspended and no task is pending — calls tick
// once to let the engine make progress (e.g. one step of playback). tick
// may be nil for an engine with no background stepping of its own (tests,
// or an idle engine). Run returns when ctx is canceled.
func (b *Bridge) Run(ctx context.Context, tick func()) {
	for {
		if b.drainReady(ctx) {
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		suspended := b.observeSuspendState()
		if suspended {
			if b.waitWhileSuspended(ctx) {
				return
			}
			continue
		}

		if tick != nil {
			tick()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-b.tasks:
			t()
		case <-b.wake:
		}
	}
}

// drainReady runs every task currently queued without blocking. Returns
// true if ctx was canceled while draining.
func (b *Bridge) drainReady(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case t := <-b.tasks:
			t()
		default:
			return false
		}
	}
}

// observeSuspendState updates b.paused to match the current suspend count
// and returns whether the engine should be considered suspended.
func (b *Bridge) observeSuspendState() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	suspended := b.suspendCount > 0
	if suspended && !b.paused {
		b.paused = true
		b.cond.Broadcast()
	} else if !suspended && b.paused {
		b.paused = false
	}
	return suspended
}

// waitWhileSuspended blocks until resumed, a task arrives (tasks still
// drain while suspended), or ctx is canceled.
func (b *Bridge) waitWhileSuspended(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case t := <-b.tasks:
		t()
		return false
	case <-b.wake:
		return false
	}
}
