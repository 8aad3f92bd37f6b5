package registry

import (
	"strings"
	"testing"

	"github.com/odin-media/playercore/pkg/event"
)

type spyLogger struct {
	lines []string
}

func (s *spyLogger) Printf(format string, args ...any) {
	s.lines = append(s.lines, format)
}

func TestNewClientNameCollisionGetsNumericSuffix(t *testing.T) {
	r := New(16, nil)

	a1, status := r.NewClient("A", "")
	if status != event.StatusOK {
		t.Fatalf("first NewClient(A) status = %v, want OK", status)
	}
	if a1.Name() != "A" {
		t.Fatalf("first client name = %q, want A", a1.Name())
	}

	a2, status := r.NewClient("A", "")
	if status != event.StatusOK {
		t.Fatalf("second NewClient(A) status = %v, want OK", status)
	}
	if a2.Name() != "A2" {
		t.Fatalf("second client name = %q, want A2", a2.Name())
	}

	a3, status := r.NewClient("A", "")
	if status != event.StatusOK {
		t.Fatalf("third NewClient(A) status = %v, want OK", status)
	}
	if a3.Name() != "A3" {
		t.Fatalf("third client name = %q, want A3", a3.Name())
	}

	if got := r.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
}

func TestDestroyRemovesFromRegistry(t *testing.T) {
	r := New(16, nil)

	h, status := r.NewClient("A", "")
	if status != event.StatusOK {
		t.Fatalf("NewClient status = %v, want OK", status)
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}

	h.Destroy()
	if r.Count() != 0 {
		t.Fatalf("Count() after Destroy = %d, want 0", r.Count())
	}

	// The freed name becomes available again.
	h2, status := r.NewClient("A", "")
	if status != event.StatusOK {
		t.Fatalf("NewClient after destroy status = %v, want OK", status)
	}
	if h2.Name() != "A" {
		t.Fatalf("name after reuse = %q, want A", h2.Name())
	}
}

func TestBroadcastRespectsMaskAndDropsOnFullRing(t *testing.T) {
	r := New(2, nil)

	subscriber, status := r.NewClient("sub", "")
	if status != event.StatusOK {
		t.Fatalf("NewClient status = %v, want OK", status)
	}
	// This client turns LogMessage off in its mask below, so it should
	// never see it.
	unsubscribed, status := r.NewClient("unsub", "")
	if status != event.StatusOK {
		t.Fatalf("NewClient status = %v, want OK", status)
	}
	unsubscribed.RequestEvent(event.LogMessage, false)
	subscriber.RequestEvent(event.LogMessage, true)

	payload := event.LogMessagePayload{Prefix: "x", Level: "info", Text: "hello"}
	r.Broadcast(event.LogMessage, payload)

	rec := subscriber.Wait(0)
	if rec.Kind != event.LogMessage {
		t.Fatalf("subscriber got kind %v, want LogMessage", rec.Kind)
	}

	rec = unsubscribed.Wait(0)
	if rec.Kind != event.None {
		t.Fatalf("unsubscribed client got kind %v, want None (masked out)", rec.Kind)
	}

	// Fill the subscriber's ring (capacity 2) past capacity so the next
	// broadcast is dropped rather than blocking or panicking.
	r.Broadcast(event.LogMessage, payload)
	r.Broadcast(event.LogMessage, payload)
	r.Broadcast(event.LogMessage, payload)

	drained := 0
	for {
		rec := subscriber.Wait(0)
		if rec.Kind == event.None {
			break
		}
		drained++
	}
	if drained != 2 {
		t.Fatalf("drained %d events, want 2 (ring capacity), extra broadcasts should have dropped", drained)
	}
}

func TestBroadcastLogsChokeWarningOnlyOnce(t *testing.T) {
	spy := &spyLogger{}
	r := New(1, spy)

	h, status := r.NewClient("full", "")
	if status != event.StatusOK {
		t.Fatalf("NewClient status = %v, want OK", status)
	}
	h.RequestEvent(event.LogMessage, true)

	payload := event.LogMessagePayload{Prefix: "x", Level: "info", Text: "hello"}
	// First broadcast fills the one-slot ring; the next three all find it
	// full, but only the first of those should log.
	for i := 0; i < 4; i++ {
		r.Broadcast(event.LogMessage, payload)
	}

	warnings := 0
	for _, line := range spy.lines {
		if strings.Contains(line, "too many events queued") {
			warnings++
		}
	}
	if warnings != 1 {
		t.Fatalf("logged %d choke warnings, want exactly 1; lines=%v", warnings, spy.lines)
	}
}

func TestSendToUnknownNameReturnsNotFound(t *testing.T) {
	r := New(16, nil)
	status := r.SendTo("nobody", event.None, nil)
	if status != event.StatusNotFound {
		t.Fatalf("SendTo unknown name status = %v, want StatusNotFound", status)
	}
}

func TestSendToDeliversToNamedClient(t *testing.T) {
	r := New(16, nil)
	h, _ := r.NewClient("A", "")

	status := r.SendTo("A", event.None, nil)
	if status != event.StatusOK {
		t.Fatalf("SendTo status = %v, want OK", status)
	}
	rec := h.Wait(0)
	if rec.Kind != event.None {
		t.Fatalf("got kind %v", rec.Kind)
	}
}

func TestMarkAllShutdownSignalsEveryClient(t *testing.T) {
	r := New(16, nil)
	a, _ := r.NewClient("A", "")
	b, _ := r.NewClient("B", "")

	r.MarkAllShutdown()

	if rec := a.Wait(0); rec.Kind != event.Shutdown {
		t.Fatalf("client A kind = %v, want Shutdown", rec.Kind)
	}
	if rec := b.Wait(0); rec.Kind != event.Shutdown {
		t.Fatalf("client B kind = %v, want Shutdown", rec.Kind)
	}
}
