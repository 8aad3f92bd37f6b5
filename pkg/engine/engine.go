// Package engine implements the public surface of spec §4.6: creating and
// destroying client handles, the wait-event loop's surrounding lifecycle
// (initialize/destroy/request_event/request_log_messages), and the typed
// request runners of §4.5 that bridge client calls onto the single engine
// thread.
//
// Grounded on the teacher's server.Server (internal/server/server.go):
// NewServer builds its collaborators (hub, NATS client, JWT manager) and
// Start/waitForShutdown drives a supervised goroutine with a periodic
// background task, the same shape Engine.Initialize uses to drive the
// "tear down when the last client leaves" rule of spec §4.6 — generalized
// from an HTTP+NATS+Hub process supervisor down to the handle-lifecycle
// state machine in scope here (playback itself stays out of scope).
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/odin-media/playercore/pkg/client"
	"github.com/odin-media/playercore/pkg/command"
	"github.com/odin-media/playercore/pkg/dispatch"
	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/logbuffer"
	"github.com/odin-media/playercore/pkg/property"
	"github.com/odin-media/playercore/pkg/registry"
)

// Logger is the minimal structured-logging contract the engine needs.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// CommandExecutor runs a parsed command against the real playback engine.
// Command execution itself is out of scope here (spec §1); Engine depends
// on this interface so an embedder can plug in the real thing, and falls
// back to a no-op executor that just validates the command shape.
type CommandExecutor interface {
	Execute(cmd command.Command) event.Status
}

type noopExecutor struct{}

func (noopExecutor) Execute(cmd command.Command) event.Status {
	if cmd.Name == "" {
		return event.StatusInvalidParameter
	}
	return event.StatusOK
}

// state is the per-engine lifecycle state of spec §4.6: "uninitialized →
// initialized → shutting_down → destroyed".
type state int

const (
	stateUninitialized state = iota
	stateInitialized
	stateShuttingDown
	stateDestroyed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitialized:
		return "initialized"
	case stateShuttingDown:
		return "shutting_down"
	case stateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Config configures Create.
type Config struct {
	// RingCapacity sizes every client's event ring. Zero selects
	// client.MaxEvents.
	RingCapacity int
	// DispatchQueueSize sizes the dispatch bridge's task queue. Zero
	// selects a small built-in default.
	DispatchQueueSize int
	// Executor runs parsed commands against the real playback engine. Nil
	// selects a no-op executor.
	Executor CommandExecutor
	// Properties is the property/option store. Nil creates a fresh
	// in-memory property.Store.
	Properties *property.Store
	// Logger receives lifecycle and drop diagnostics. Nil discards them.
	Logger Logger
}

// Engine is the embeddable client API core: one dispatch bridge, one
// client registry, and the property store shared by request runners.
type Engine struct {
	bridge   *dispatch.Bridge
	registry *registry.Registry
	props    *property.Store
	executor CommandExecutor
	logger   Logger

	ctx    context.Context
	cancel context.CancelFunc

	stMu  sync.Mutex
	state state
}

// Create builds the engine context and its first client, "main", applying
// the embedder-friendly defaults ("idle=yes", "terminal=no", "osc=no") via
// SetOption before the engine is initialized, exactly as spec §4.6
// describes. If the first client cannot be created, the engine context is
// torn down and the error is returned.
func Create(cfg Config) (*Engine, *client.Handle, event.Status) {
	ringCapacity := cfg.RingCapacity
	if ringCapacity <= 0 {
		ringCapacity = client.MaxEvents
	}
	queueSize := cfg.DispatchQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	executor := cfg.Executor
	if executor == nil {
		executor = noopExecutor{}
	}
	props := cfg.Properties
	if props == nil {
		props = property.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		bridge:   dispatch.NewBridge(queueSize),
		registry: registry.New(ringCapacity, logger),
		props:    props,
		executor: executor,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		state:    stateUninitialized,
	}

	go e.bridge.Run(ctx, nil)

	h, status := e.registry.NewClient("main", "main")
	if status != event.StatusOK {
		e.cancel()
		return nil, nil, status
	}

	for _, opt := range [][2]string{
		{"idle", "yes"},
		{"terminal", "no"},
		{"osc", "no"},
	} {
		e.props.SetOption(opt[0], opt[1])
	}

	return e, h, event.StatusOK
}

// State reports the engine's current lifecycle state, for diagnostics and
// tests.
func (e *Engine) State() string {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.state.String()
}

// stateIs reports whether the engine is currently in state s.
func (e *Engine) stateIs(s state) bool {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.state == s
}

// Registry exposes the underlying client registry, so an embedder can
// create additional clients beyond "main" (spec §4.3 Create, callable at
// any time, independent of engine initialization).
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Initialize transitions the engine from uninitialized to initialized
// (spec §4.6). On success it starts a background monitor that tears the
// engine down once the last client is destroyed, standing in for "spawns
// the detached playback thread ... tears down the engine when the last
// client is gone" (the playback thread itself is out of scope).
func (e *Engine) Initialize(h *client.Handle) event.Status {
	e.stMu.Lock()
	if e.state != stateUninitialized {
		e.stMu.Unlock()
		return event.StatusInvalidParameter
	}
	e.state = stateInitialized
	e.stMu.Unlock()

	go e.watchForLastClient()
	return event.StatusOK
}

// watchForLastClient polls the registry and tears the engine down once it
// empties out, grounded on the teacher's collectSystemMetrics ticker loop
// (go-server/internal/server/server.go).
func (e *Engine) watchForLastClient() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if e.registry.Count() == 0 {
				e.stMu.Lock()
				e.state = stateDestroyed
				e.stMu.Unlock()
				e.logger.Printf("engine: last client gone, tearing down")
				e.cancel()
				return
			}
		}
	}
}

// Shutdown begins cooperative teardown: every registered client's Wait
// call will return a Shutdown event until that client calls Destroy (spec
// §5 "Cancellation").
func (e *Engine) Shutdown() {
	e.stMu.Lock()
	if e.state == stateDestroyed || e.state == stateShuttingDown {
		e.stMu.Unlock()
		return
	}
	e.state = stateShuttingDown
	e.stMu.Unlock()
	e.registry.MarkAllShutdown()
}

// Destroy destroys h (spec §4.3/§4.6).
func (e *Engine) Destroy(h *client.Handle) {
	h.Destroy()
}

// RequestEvent toggles one event kind in h's subscription mask (spec §4.6
// request_event). Unknown kinds are rejected.
func (e *Engine) RequestEvent(h *client.Handle, kind event.Kind, enable bool) event.Status {
	if !validKind(kind) {
		return event.StatusInvalidParameter
	}
	h.RequestEvent(kind, enable)
	return event.StatusOK
}

func validKind(kind event.Kind) bool {
	return kind >= event.None && kind <= event.ScriptInputDispatch
}

// RequestLogMessages opens (or closes) h's log tap at the given level
// (spec §4.6 request_log_messages). Passing "no" closes the tap; any
// other change closes the old tap (if any) and opens a fresh one with a
// 1000-entry backlog.
func (e *Engine) RequestLogMessages(h *client.Handle, level string) event.Status {
	if level == "no" {
		h.SetLogTap(nil)
		return event.StatusOK
	}
	if !logbuffer.ValidLevel(level) {
		return event.StatusInvalidParameter
	}
	h.SetLogTap(logbuffer.New(1000, level))
	return event.StatusOK
}

// ClientName returns h's assigned name (spec §4.6 client_name).
func (e *Engine) ClientName(h *client.Handle) string { return h.Name() }

// ErrorString renders status as a human-readable message (spec §4.6
// error_string).
func (e *Engine) ErrorString(status event.Status) string { return status.Error() }

// EventName renders kind as a human-readable name (spec §4.6 event_name).
func (e *Engine) EventName(kind event.Kind) string { return kind.String() }

// Free releases a payload previously returned by a Wait call (spec §4.6
// free). Go's garbage collector reclaims the memory either way; Release
// exists for payload kinds an embedder extends with real external
// resources (file handles, C memory via cgo, and similar).
func (e *Engine) Free(p event.Payload) {
	if p != nil {
		p.Release()
	}
}

// ClientAPIVersion returns a stable 32-bit version value: high 16 bits
// ABI, low 16 bits minor (spec §6 client_api_version).
func ClientAPIVersion() uint32 {
	const abi, minor = 1, 0
	return uint32(abi)<<16 | uint32(minor)
}
