package engine

import (
	"github.com/odin-media/playercore/pkg/client"
	"github.com/odin-media/playercore/pkg/command"
	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/property"
)

// RunCommandSync runs cmd on the engine thread and blocks until it
// completes (spec §4.5 "Synchronous"). Engine-visible errors and
// execution errors are indistinguishable here because both resolve
// through the same blocking call; only submission-time validation
// (below) is checked before touching the engine thread at all.
func (e *Engine) RunCommandSync(cmd command.Command) event.Status {
	if cmd.Name == "" {
		return event.StatusInvalidParameter
	}
	var status event.Status
	e.bridge.RunLocked(func() {
		status = e.executor.Execute(cmd)
	})
	return status
}

// RunCommandAsync reserves a reply slot on h, then enqueues cmd for
// execution on the engine thread; the result is delivered as a reply
// event correlated by the returned reply ID (spec §4.5 "Asynchronous").
// Submission-time errors (engine not initialized, reservation exhausted)
// are returned synchronously without touching the ring.
func (e *Engine) RunCommandAsync(h *client.Handle, cmd command.Command) (replyID uint64, status event.Status) {
	if cmd.Name == "" {
		return 0, event.StatusInvalidParameter
	}
	if !e.stateIs(stateInitialized) {
		return 0, event.StatusUninitialized
	}
	replyID, status = h.ReserveReply()
	if status != event.StatusOK {
		return 0, status
	}
	e.bridge.RunAsync(func() {
		result := e.executor.Execute(cmd)
		h.SendStatusReply(replyID, result)
	})
	return replyID, event.StatusOK
}

// SetOption is the pre-initialization special case of set-property (spec
// §4.5 "Set option"): it bypasses the dispatch bridge entirely and writes
// straight to the property store, valid only while the engine has not
// yet been initialized.
func (e *Engine) SetOption(name, value string) event.Status {
	if !e.stateIs(stateUninitialized) {
		return event.StatusInvalidParameter
	}
	return e.props.SetOption(name, value)
}

// SetPropertySync sets a property synchronously once the engine is
// running, routing the write through the dispatch bridge so property
// state is only ever mutated from the engine thread (spec §5
// "Shared-resource policy").
func (e *Engine) SetPropertySync(name, value string) event.Status {
	if !e.stateIs(stateInitialized) {
		return event.StatusUninitialized
	}
	var status event.Status
	e.bridge.RunLocked(func() {
		status = e.props.SetOption(name, value)
	})
	return status
}

// SetPropertyAsync is the asynchronous counterpart of SetPropertySync
// (spec §4.5 "Asynchronous"): it reserves a reply slot on h, and the
// write plus reply happen together on the engine thread.
func (e *Engine) SetPropertyAsync(h *client.Handle, name, value string) (replyID uint64, status event.Status) {
	if !e.stateIs(stateInitialized) {
		return 0, event.StatusUninitialized
	}
	replyID, status = h.ReserveReply()
	if status != event.StatusOK {
		return 0, status
	}
	e.bridge.RunAsync(func() {
		result := e.props.SetOption(name, value)
		h.SendStatusReply(replyID, result)
	})
	return replyID, event.StatusOK
}

// GetPropertySync reads name via verb synchronously once the engine is
// running, routing the read through the dispatch bridge so property state
// is only ever touched from the engine thread (spec §4.5 "Get-property
// sync"; spec §5 "Shared-resource policy").
func (e *Engine) GetPropertySync(name string, verb property.Verb) (value string, status event.Status) {
	if !e.stateIs(stateInitialized) {
		return "", event.StatusUninitialized
	}
	e.bridge.RunLocked(func() {
		value, status = e.props.Do(name, verb)
	})
	return value, status
}

// GetPropertyAsync reserves a reply slot on h, then reads name via verb
// on the engine thread; on success the reply is a Property event carrying
// {name, format, data} (spec §4.5 "Get-property async"), on failure an
// Error event carrying the property status.
func (e *Engine) GetPropertyAsync(h *client.Handle, name string, verb property.Verb) (replyID uint64, status event.Status) {
	if !e.stateIs(stateInitialized) {
		return 0, event.StatusUninitialized
	}
	replyID, status = h.ReserveReply()
	if status != event.StatusOK {
		return 0, status
	}
	e.bridge.RunAsync(func() {
		value, result := e.props.Do(name, verb)
		if result != event.StatusOK {
			h.SendErrorReply(replyID, result)
			return
		}
		h.SendReply(event.Record{
			InReplyTo: replyID,
			Kind:      event.Property,
			Payload:   event.PropertyPayload{Name: name, Format: "string", Data: value},
		})
	})
	return replyID, event.StatusOK
}
