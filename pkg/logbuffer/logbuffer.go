// Package logbuffer is the external log-buffer collaborator referenced in
// spec §6: "Log buffer: new(global, capacity, level), read() →
// {prefix, level, text}, destroy()". It backs each client's log tap
// (spec §4.6 request_log_messages).
package logbuffer

import (
	"sync"

	"github.com/odin-media/playercore/pkg/event"
)

// Levels is the fixed, ordered set of log levels a client can request,
// from least to most verbose (spec §4.6).
var Levels = []string{"no", "fatal", "error", "warn", "info", "status", "v", "debug", "trace"}

// levelRank maps a level name to its position in Levels, used to compare
// severities ("at least as important as the requested minimum").
var levelRank = func() map[string]int {
	m := make(map[string]int, len(Levels))
	for i, l := range Levels {
		m[l] = i
	}
	return m
}()

// ValidLevel reports whether name is one of the known level names.
func ValidLevel(name string) bool {
	_, ok := levelRank[name]
	return ok
}

// Tap is a per-client subscription to the shared log stream at a chosen
// minimum level, with its own bounded backlog (spec §3 "log-tap handle
// and its level").
type Tap struct {
	mu       sync.Mutex
	level    string
	capacity int
	backlog  []event.LogMessagePayload
	closed   bool
}

// New opens a tap at the given minimum level with the given backlog
// capacity. Passing level "no" yields a tap that accepts nothing (the
// caller is expected to treat "no" as "close the tap" instead, per spec
// §4.6, but New tolerates it defensively).
func New(capacity int, level string) *Tap {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Tap{level: level, capacity: capacity}
}

// Level returns the tap's configured minimum level.
func (t *Tap) Level() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// Accepts reports whether a message logged at level would pass this tap's
// minimum-level filter.
func (t *Tap) Accepts(level string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.level == "" || t.level == "no" {
		return false
	}
	r, ok := levelRank[level]
	if !ok {
		return false
	}
	return r <= levelRank[t.level]
}

// Write appends a log line if it passes the level filter and the backlog
// has room; otherwise it is dropped (the engine's global log buffer, not
// this tap, is the system of record — a tap drop only means this one
// client misses a line, mirroring the ring-drop policy of spec §4.3).
func (t *Tap) Write(prefix, level, text string) {
	if !t.Accepts(level) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || len(t.backlog) >= t.capacity {
		return
	}
	t.backlog = append(t.backlog, event.LogMessagePayload{Prefix: prefix, Level: level, Text: text})
}

// TryRead pops the oldest buffered log message, if any (spec §4.3 Wait
// step 3: "Else if log tap has a message, return a LOG_MESSAGE event").
func (t *Tap) TryRead() (event.LogMessagePayload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.backlog) == 0 {
		return event.LogMessagePayload{}, false
	}
	msg := t.backlog[0]
	t.backlog = t.backlog[1:]
	return msg, true
}

// Close destroys the tap; further Write calls are no-ops.
func (t *Tap) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.backlog = nil
}
