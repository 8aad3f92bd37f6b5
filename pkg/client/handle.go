// Package client implements the per-client handle of spec §3/§4.3: the
// private state — name, log scope, event ring, wakeup, event mask, log tap,
// reply-ID allocator — that every registered client owns.
//
// Grounded on the teacher's pkg/websocket.Client (send channel, ID,
// ConnectedAt), generalized from a network peer to an in-process
// registrant: there is no socket and no read/write pump here, Wait below
// replaces them with the condition-variable loop of spec §4.3.
package client

import (
	"sync"
	"time"

	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/logbuffer"
)

// MaxEvents is the ring's semantic capacity (spec §3: "the reference
// implementation uses 1000").
const MaxEvents = 1000

// WakeupFunc is invoked with the handle lock held whenever Wakeup fires.
// Per spec §4.3 this must be wait-free and must never call back into the
// client API (the lock is already held by the caller).
type WakeupFunc func(ctx any)

// Handle is one client's private state (spec §3 "Client handle").
type Handle struct {
	// immutable
	name     string
	logScope string

	// onDestroy lets the owning registry remove this handle from its table
	// without client importing registry (which would cycle back to client).
	onDestroy func(*Handle)

	mu sync.Mutex
	// guarded by mu
	cond           *sync.Cond
	eventMask      event.Mask
	queuedWakeup   bool
	shutdown       bool
	wakeupCallback WakeupFunc
	wakeupCtx      any
	nextReplyID    uint64
	reservedEvents int
	ring           *event.Ring
	logTap         *logbuffer.Tap
	chokeWarned    bool
	destroyed      bool

	// single-reader scratch: the record returned by the last Wait call,
	// whose payload (if any) is freed at the top of the next Wait.
	current event.Record
}

// New creates a handle with the given name and ring capacity. onDestroy,
// if non-nil, is invoked once from Destroy before the handle's own
// teardown runs.
func New(name, logScope string, ringCapacity int, onDestroy func(*Handle)) *Handle {
	h := &Handle{
		name:      name,
		logScope:  logScope,
		onDestroy: onDestroy,
		eventMask: event.DefaultMask(),
		ring:      event.NewRing(ringCapacity),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Name returns the client's unique, immutable name.
func (h *Handle) Name() string { return h.name }

// LogScope returns the immutable log scope assigned at creation.
func (h *Handle) LogScope() string { return h.logScope }

// SetWakeupCallback installs fn to be invoked (with the handle lock held)
// whenever Wakeup fires. Pass a nil fn to clear it.
func (h *Handle) SetWakeupCallback(fn WakeupFunc, ctx any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wakeupCallback = fn
	h.wakeupCtx = ctx
}

// RequestEvent toggles kind's bit in the event mask (spec §4.6
// request_event). Unknown kinds are rejected by the caller before this is
// invoked; RequestEvent itself is unconditional.
func (h *Handle) RequestEvent(kind event.Kind, enable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eventMask = h.eventMask.Set(kind, enable)
}

// EventMask returns the current subscription mask.
func (h *Handle) EventMask() event.Mask {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eventMask
}

// SetLogTap replaces the handle's log tap (spec §4.6
// request_log_messages — "any change closes then reopens the tap").
func (h *Handle) SetLogTap(tap *logbuffer.Tap) {
	h.mu.Lock()
	old := h.logTap
	h.logTap = tap
	h.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// ReserveReply allocates a reply ID and claims a ring slot for it, per
// spec §4.3. It must be paired with exactly one later SendReply or
// SendErrorReply call using the returned ID.
func (h *Handle) ReserveReply() (replyID uint64, status event.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reservedEvents >= h.ring.Capacity() {
		return 0, event.StatusEventBufferFull
	}
	h.reservedEvents++
	h.nextReplyID++
	return h.nextReplyID, event.StatusOK
}

// SendReply consumes one reservation and writes rec into the ring. Per
// spec §4.3 this can never be dropped — the capacity was pre-reserved —
// and a call with no matching reservation is a programmer error.
func (h *Handle) SendReply(rec event.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reservedEvents <= 0 {
		panic("client: SendReply with no outstanding reservation")
	}
	h.reservedEvents--
	h.ring.Push(rec)
	h.signalLocked()
}

// SendErrorReply is SendReply with an Error event carrying status. It
// sends an Error event even for StatusOK; SendStatusReply is the variant
// that picks OK or Error from the status.
func (h *Handle) SendErrorReply(replyID uint64, status event.Status) {
	h.SendReply(event.ErrorRecord(replyID, status))
}

// SendStatusReply sends an OK event if status is StatusOK, else an Error
// event carrying status (spec §4.3 "Status reply").
func (h *Handle) SendStatusReply(replyID uint64, status event.Status) {
	h.SendReply(event.StatusRecord(replyID, status))
}

// sendResult reports what happened to an unsolicited SendEvent call.
type sendResult int

const (
	// SendDelivered means the event was written to the ring.
	SendDelivered sendResult = iota
	// SendMaskedOut means the client's mask does not subscribe to this kind.
	SendMaskedOut
	// SendDropped means the ring had no free (unreserved) slot, and this
	// client has already been warned about it once.
	SendDropped
	// SendDroppedFirstWarn is SendDropped the first time it happens for
	// this client: the caller should emit the one-shot choke warning.
	SendDroppedFirstWarn
)

// SendEvent delivers an unsolicited event (in_reply_to == 0) subject to
// the mask filter and free-slot accounting of spec §4.3. The caller
// retains ownership of rec.Payload; SendEvent does not take or release it
// beyond copying the Record by value into the ring.
func (h *Handle) SendEvent(rec event.Record) sendResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.eventMask.Has(rec.Kind) {
		return SendMaskedOut
	}

	freeSlots := h.ring.Available() - h.reservedEvents
	if freeSlots <= 0 {
		if !h.chokeWarned {
			h.chokeWarned = true
			return SendDroppedFirstWarn
		}
		return SendDropped
	}

	h.ring.Push(rec)
	h.signalLocked()
	return SendDelivered
}

// signalLocked sets the queued-wakeup flag, signals the condition
// variable, and fires the wakeup callback. Must be called with h.mu held.
func (h *Handle) signalLocked() {
	h.queuedWakeup = true
	h.cond.Broadcast()
	if h.wakeupCallback != nil {
		h.wakeupCallback(h.wakeupCtx)
	}
}

// Wakeup sets the queued-wakeup flag and signals any waiter, without
// delivering an event (spec §4.3 "Wakeup").
func (h *Handle) Wakeup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signalLocked()
}

// MarkShutdown transitions the handle to the shutdown state: every future
// Wait call returns a Shutdown event until the client calls Destroy (spec
// §5 "Cancellation").
func (h *Handle) MarkShutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = true
	h.cond.Broadcast()
}

// Wait implements the §4.3 wait-for-event loop. It is a single-consumer
// operation: calling Wait concurrently from two goroutines on the same
// handle is undefined, exactly as spec.md documents.
func (h *Handle) Wait(timeout time.Duration) event.Record {
	h.current.Release()
	h.current = event.Record{}

	deadline := time.Now().Add(timeout)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		if rec, ok := h.ring.Pop(); ok {
			h.current = rec
			return rec
		}
		if h.shutdown {
			rec := event.Record{Kind: event.Shutdown}
			h.current = rec
			return rec
		}
		if h.logTap != nil {
			if msg, ok := h.logTap.TryRead(); ok {
				rec := event.Record{Kind: event.LogMessage, Payload: msg}
				h.current = rec
				return rec
			}
		}
		if h.queuedWakeup {
			h.queuedWakeup = false
			rec := event.Record{Kind: event.None}
			h.current = rec
			return rec
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			rec := event.Record{Kind: event.None}
			h.current = rec
			return rec
		}
		h.waitOnCond(remaining)
	}
}

// waitOnCond blocks on h.cond for at most remaining, then returns. It is
// the only suspension point in Wait (spec §5).
func (h *Handle) waitOnCond(remaining time.Duration) {
	timer := time.AfterFunc(remaining, func() {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
	})
	defer timer.Stop()
	h.cond.Wait()
}

// Destroy tears the handle down: removes it from its registry (via the
// onDestroy hook installed at New), drains the ring freeing payloads,
// and closes the log tap (spec §4.3 Destroy).
func (h *Handle) Destroy() {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.destroyed = true
	onDestroy := h.onDestroy
	h.mu.Unlock()

	if onDestroy != nil {
		onDestroy(h)
	}

	h.mu.Lock()
	h.ring.Drain()
	h.current.Release()
	h.current = event.Record{}
	tap := h.logTap
	h.logTap = nil
	h.mu.Unlock()

	if tap != nil {
		tap.Close()
	}
}

// ReservedEvents reports the number of outstanding reply reservations.
// Intended for tests and diagnostics (spec §8 "Reservation safety").
func (h *Handle) ReservedEvents() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reservedEvents
}
