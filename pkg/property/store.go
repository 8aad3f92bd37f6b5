// Package property is the external option/property collaborator referenced
// in spec §6: "Option store: set_option(name, value) → status" and
// "Property access: do(name, verb, args...) → status, reply payload". It
// stands in for the real playback engine's option table, which is out of
// scope per spec §1.
//
// The default Store is a plain map guarded by a mutex. Once the engine is
// initialized, request runners call it only from inside the dispatch
// bridge's RunLocked/RunAsync closures; before that, engine.Create and
// Engine.SetOption write to it directly from the caller's goroutine.
package property

import (
	"strings"
	"sync"

	"github.com/odin-media/playercore/pkg/event"
)

// Verb is one of the property access operations of spec §4.5.
type Verb int

const (
	// GetString fetches the current value as a string.
	GetString Verb = iota
	// Print fetches the value for display; this Store returns the same
	// string as GetString.
	Print
)

// Store is an in-memory option/property table.
type Store struct {
	mu     sync.Mutex
	values map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// SetOption sets an option's value. Names are accepted with or without a
// legacy "options/" prefix; both forms address the same option, so a
// caller building the prefixed form itself doesn't end up writing a
// distinct, shadowed entry.
func (s *Store) SetOption(name, value string) event.Status {
	if name == "" {
		return event.StatusInvalidParameter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[canonicalName(name)] = value
	return event.StatusOK
}

// Do implements spec §6's "do(name, verb, args...) → status, reply
// payload" for the two verbs request runners actually issue (spec §4.5
// GetPropertyAsync): GetString and Print both resolve to the stored
// string value, or StatusPropertyUnavailable if name was never set.
func (s *Store) Do(name string, verb Verb) (string, event.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.values[canonicalName(name)]
	if !ok {
		return "", event.StatusPropertyUnavailable
	}
	switch verb {
	case GetString, Print:
		return val, event.StatusOK
	default:
		return "", event.StatusInvalidParameter
	}
}

// canonicalName strips the legacy "options/" prefix some callers still
// send, so "options/volume" and "volume" name the same property.
func canonicalName(name string) string {
	return strings.TrimPrefix(name, "options/")
}
