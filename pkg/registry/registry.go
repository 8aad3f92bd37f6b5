// Package registry implements the per-engine client registry of spec §3/
// §4.4: a locked table of live client handles, unique-name allocation, and
// broadcast/targeted fan-out filtered by each client's event mask.
//
// Grounded on the teacher's Hub (pkg/websocket/hub.go): a locked map of
// clients plus register/unregister/broadcast. Generalized from the
// teacher's channel-queued register/unregister (the hub processes them off
// a single goroutine's channels) to a direct lock-then-mutate API, because
// spec §4.3's new_client must hand the caller back the assigned name
// synchronously — routing that through a hub goroutine would need a second
// reply channel for no benefit, so Registry takes its own mutex directly.
package registry

import (
	"fmt"
	"sync"

	"github.com/odin-media/playercore/pkg/client"
	"github.com/odin-media/playercore/pkg/event"
)

// Logger is the minimal structured-logging contract the registry needs;
// satisfied by the standard library's *log.Logger and by the Printf
// adapter in internal/logging around *zap.SugaredLogger.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Registry is the per-engine table of live clients (spec §3 "Client
// registry"). The zero value is not usable; use New.
type Registry struct {
	mu           sync.Mutex
	clients      map[string]*client.Handle
	ringCapacity int
	logger       Logger
}

// New creates an empty registry. ringCapacity sizes every client's event
// ring (spec §3 MAX_EVENTS); logger may be nil, in which case registry
// activity is not logged.
func New(ringCapacity int, logger Logger) *Registry {
	if ringCapacity <= 0 {
		ringCapacity = client.MaxEvents
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Registry{
		clients:      make(map[string]*client.Handle),
		ringCapacity: ringCapacity,
		logger:       logger,
	}
}

// NewClient creates and registers a new client handle. If requestedName is
// already taken, a numeric suffix 2..999 is appended until a free name is
// found (spec §4.3 Create); StatusEventBufferFull-style exhaustion (no
// free name in range) reports StatusInvalidParameter, the closest stable
// code for "caller's request cannot be satisfied".
func (r *Registry) NewClient(requestedName, logScope string) (*client.Handle, event.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.freeNameLocked(requestedName)
	if !ok {
		return nil, event.StatusInvalidParameter
	}

	h := client.New(name, logScope, r.ringCapacity, r.remove)
	r.clients[name] = h
	r.logger.Printf("client %q registered (total=%d)", name, len(r.clients))
	return h, event.StatusOK
}

// freeNameLocked must be called with r.mu held.
func (r *Registry) freeNameLocked(requestedName string) (string, bool) {
	if _, taken := r.clients[requestedName]; !taken {
		return requestedName, true
	}
	for suffix := 2; suffix < 1000; suffix++ {
		candidate := fmt.Sprintf("%s%d", requestedName, suffix)
		if _, taken := r.clients[candidate]; !taken {
			return candidate, true
		}
	}
	return "", false
}

// remove is the onDestroy hook installed on every handle this registry
// creates (spec §4.3 Destroy: "remove from registry under registry lock").
func (r *Registry) remove(h *client.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[h.Name()]; ok {
		delete(r.clients, h.Name())
		r.logger.Printf("client %q destroyed (total=%d)", h.Name(), len(r.clients))
	}
}

// Count returns the number of currently registered clients (spec §4.4
// Count).
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Broadcast delivers an event to every registered client, subject to each
// client's own mask filter (spec §4.4 Broadcast). The caller retains
// ownership of payload and must free/release it exactly once after
// Broadcast returns, regardless of how many (if any) recipients actually
// received it — Broadcast never takes ownership itself (spec §8 "Broadcast
// atomicity of data ownership").
func (r *Registry) Broadcast(kind event.Kind, payload event.Payload) {
	rec := event.Record{InReplyTo: 0, Kind: kind, Payload: payload}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, h := range r.clients {
		if h.SendEvent(rec) == client.SendDroppedFirstWarn {
			r.logger.Printf("client %q too many events queued, dropping %s event (further drops for this client will not be logged)", name, kind)
		}
	}
}

// SendTo delivers an event to exactly the named client (spec §4.4
// "Targeted send"). It reports StatusNotFound if no such client is
// registered; the caller still owns payload either way.
func (r *Registry) SendTo(name string, kind event.Kind, payload event.Payload) event.Status {
	rec := event.Record{InReplyTo: 0, Kind: kind, Payload: payload}

	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.clients[name]
	if !ok {
		return event.StatusNotFound
	}
	h.SendEvent(rec)
	return event.StatusOK
}

// Lookup returns the handle registered under name, if any. Intended for
// request runners that need to route a reply to a specific client without
// going through the full SendTo event path.
func (r *Registry) Lookup(name string) (*client.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.clients[name]
	return h, ok
}

// MarkAllShutdown transitions every registered client to the shutdown
// state (spec §5 "Cancellation": "when the engine tears down, it sets
// shutdown on each client and signals their condition variables").
func (r *Registry) MarkAllShutdown() {
	r.mu.Lock()
	handles := make([]*client.Handle, 0, len(r.clients))
	for _, h := range r.clients {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.MarkShutdown()
	}
}
