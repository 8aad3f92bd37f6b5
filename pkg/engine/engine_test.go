package engine

import (
	"testing"
	"time"

	"github.com/odin-media/playercore/pkg/command"
	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/property"
)

func TestCreateAppliesEmbedderDefaults(t *testing.T) {
	e, h, status := Create(Config{})
	if status != event.StatusOK {
		t.Fatalf("Create status = %v, want OK", status)
	}
	if h.Name() != "main" {
		t.Fatalf("first client name = %q, want main", h.Name())
	}
	val, status := e.props.Do("idle", property.GetString)
	if status != event.StatusOK || val != "yes" {
		t.Fatalf("idle option = (%q, %v), want (yes, OK)", val, status)
	}
}

func TestSetOptionOnlyValidBeforeInitialize(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.SetOption("foo", "bar"); status != event.StatusOK {
		t.Fatalf("SetOption before init status = %v, want OK", status)
	}
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v, want OK", status)
	}
	if status := e.SetOption("foo", "baz"); status != event.StatusInvalidParameter {
		t.Fatalf("SetOption after init status = %v, want StatusInvalidParameter", status)
	}
}

func TestRunCommandSyncExecutesOnEngineThread(t *testing.T) {
	e, _, _ := Create(Config{})
	status := e.RunCommandSync(command.Command{Name: "loadfile", Args: []string{"x"}})
	if status != event.StatusOK {
		t.Fatalf("RunCommandSync status = %v, want OK", status)
	}
}

func TestRunCommandAsyncDeliversReply(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v", status)
	}

	replyID, status := e.RunCommandAsync(h, command.Command{Name: "loadfile", Args: []string{"x"}})
	if status != event.StatusOK {
		t.Fatalf("RunCommandAsync status = %v, want OK", status)
	}
	if replyID == 0 {
		t.Fatal("replyID = 0, want positive")
	}

	rec := h.Wait(time.Second)
	if rec.Kind != event.OK {
		t.Fatalf("reply kind = %v, want OK", rec.Kind)
	}
	if rec.InReplyTo != replyID {
		t.Fatalf("InReplyTo = %d, want %d", rec.InReplyTo, replyID)
	}
}

func TestGetPropertyAsyncDeliversPropertyEvent(t *testing.T) {
	e, h, _ := Create(Config{})
	e.SetOption("volume", "80")
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v", status)
	}

	replyID, status := e.GetPropertyAsync(h, "volume", property.GetString)
	if status != event.StatusOK {
		t.Fatalf("GetPropertyAsync status = %v, want OK", status)
	}

	rec := h.Wait(time.Second)
	if rec.Kind != event.Property {
		t.Fatalf("reply kind = %v, want Property", rec.Kind)
	}
	if rec.InReplyTo != replyID {
		t.Fatalf("InReplyTo = %d, want %d", rec.InReplyTo, replyID)
	}
	payload, ok := rec.Payload.(event.PropertyPayload)
	if !ok {
		t.Fatalf("payload type = %T, want PropertyPayload", rec.Payload)
	}
	if payload.Data != "80" {
		t.Fatalf("payload.Data = %q, want 80", payload.Data)
	}
}

func TestGetPropertySyncReturnsValue(t *testing.T) {
	e, h, _ := Create(Config{})
	e.SetOption("volume", "80")
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v", status)
	}

	value, status := e.GetPropertySync("volume", property.GetString)
	if status != event.StatusOK {
		t.Fatalf("GetPropertySync status = %v, want OK", status)
	}
	if value != "80" {
		t.Fatalf("value = %q, want 80", value)
	}
}

func TestGetPropertySyncUnknownNameReturnsPropertyUnavailable(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v", status)
	}

	_, status := e.GetPropertySync("nonexistent", property.GetString)
	if status != event.StatusPropertyUnavailable {
		t.Fatalf("GetPropertySync status = %v, want StatusPropertyUnavailable", status)
	}
}

func TestGetPropertySyncBeforeInitializeReturnsUninitialized(t *testing.T) {
	e, _, _ := Create(Config{})
	_, status := e.GetPropertySync("volume", property.GetString)
	if status != event.StatusUninitialized {
		t.Fatalf("GetPropertySync status = %v, want StatusUninitialized", status)
	}
}

func TestGetPropertyAsyncUnknownNameSendsErrorReply(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v", status)
	}

	_, status := e.GetPropertyAsync(h, "nonexistent", property.GetString)
	if status != event.StatusOK {
		t.Fatalf("GetPropertyAsync submission status = %v, want OK", status)
	}

	rec := h.Wait(time.Second)
	if rec.Kind != event.Error {
		t.Fatalf("reply kind = %v, want Error", rec.Kind)
	}
	if rec.Err != event.StatusPropertyUnavailable {
		t.Fatalf("reply err = %v, want StatusPropertyUnavailable", rec.Err)
	}
}

func TestRequestEventRejectsUnknownKind(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.RequestEvent(h, event.Kind(999), true); status != event.StatusInvalidParameter {
		t.Fatalf("status = %v, want StatusInvalidParameter", status)
	}
}

func TestRequestLogMessagesOpensAndClosesTap(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.RequestLogMessages(h, "info"); status != event.StatusOK {
		t.Fatalf("status = %v, want OK", status)
	}
	if status := e.RequestLogMessages(h, "no"); status != event.StatusOK {
		t.Fatalf("status = %v, want OK", status)
	}
}

func TestRequestLogMessagesRejectsUnknownLevel(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.RequestLogMessages(h, "bogus"); status != event.StatusInvalidParameter {
		t.Fatalf("status = %v, want StatusInvalidParameter", status)
	}
}

func TestInitializeTwiceIsRejected(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("first Initialize status = %v, want OK", status)
	}
	if status := e.Initialize(h); status != event.StatusInvalidParameter {
		t.Fatalf("second Initialize status = %v, want StatusInvalidParameter", status)
	}
}

func TestEngineTearsDownAfterLastClientDestroyed(t *testing.T) {
	e, h, _ := Create(Config{})
	if status := e.Initialize(h); status != event.StatusOK {
		t.Fatalf("Initialize status = %v", status)
	}
	e.Destroy(h)

	deadline := time.Now().Add(2 * time.Second)
	for e.State() != "destroyed" {
		if time.Now().After(deadline) {
			t.Fatalf("engine state = %q after timeout, want destroyed", e.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
