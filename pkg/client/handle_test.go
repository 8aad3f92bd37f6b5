package client

import (
	"testing"
	"time"

	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/logbuffer"
)

func TestReserveReplyThenSendReplyDeliversByReplyID(t *testing.T) {
	h := New("a", "", 4, nil)
	replyID, status := h.ReserveReply()
	if status != event.StatusOK {
		t.Fatalf("ReserveReply status = %v, want OK", status)
	}
	if replyID != 1 {
		t.Fatalf("replyID = %d, want 1", replyID)
	}

	h.SendStatusReply(replyID, event.StatusOK)
	rec := h.Wait(0)
	if rec.Kind != event.OK || rec.InReplyTo != replyID {
		t.Fatalf("rec = %+v, want OK reply for %d", rec, replyID)
	}
}

func TestReserveReplyExhaustionReturnsEventBufferFull(t *testing.T) {
	h := New("a", "", 2, nil)
	if _, status := h.ReserveReply(); status != event.StatusOK {
		t.Fatalf("first reserve status = %v", status)
	}
	if _, status := h.ReserveReply(); status != event.StatusOK {
		t.Fatalf("second reserve status = %v", status)
	}
	if _, status := h.ReserveReply(); status != event.StatusEventBufferFull {
		t.Fatalf("third reserve status = %v, want StatusEventBufferFull", status)
	}
}

func TestSendReplyWithNoReservationPanics(t *testing.T) {
	h := New("a", "", 4, nil)
	defer func() {
		if recover() == nil {
			t.Fatal("SendReply with no reservation did not panic")
		}
	}()
	h.SendReply(event.OKRecord(1))
}

func TestSendEventMaskedOutIsInvisible(t *testing.T) {
	h := New("a", "", 4, nil)
	h.RequestEvent(event.LogMessage, false)

	res := h.SendEvent(event.Record{Kind: event.LogMessage})
	if res != SendMaskedOut {
		t.Fatalf("SendEvent result = %v, want SendMaskedOut", res)
	}
	rec := h.Wait(0)
	if rec.Kind != event.None {
		t.Fatalf("got kind %v, want None (masked event never enqueued)", rec.Kind)
	}
}

func TestSendEventDropsWhenRingFull(t *testing.T) {
	h := New("a", "", 2, nil)
	if res := h.SendEvent(event.Record{Kind: event.Idle}); res != SendDelivered {
		t.Fatalf("first send result = %v, want SendDelivered", res)
	}
	if res := h.SendEvent(event.Record{Kind: event.Idle}); res != SendDelivered {
		t.Fatalf("second send result = %v, want SendDelivered", res)
	}
	if res := h.SendEvent(event.Record{Kind: event.Idle}); res != SendDroppedFirstWarn {
		t.Fatalf("third send result = %v, want SendDroppedFirstWarn", res)
	}
	if res := h.SendEvent(event.Record{Kind: event.Idle}); res != SendDropped {
		t.Fatalf("fourth send result = %v, want SendDropped (warning already latched)", res)
	}
}

func TestSendEventRespectsReservedSlots(t *testing.T) {
	h := New("a", "", 2, nil)
	if _, status := h.ReserveReply(); status != event.StatusOK {
		t.Fatalf("reserve status = %v", status)
	}
	// One slot reserved out of 2: only one free slot for unsolicited sends.
	if res := h.SendEvent(event.Record{Kind: event.Idle}); res != SendDelivered {
		t.Fatalf("first send result = %v, want SendDelivered", res)
	}
	if res := h.SendEvent(event.Record{Kind: event.Idle}); res != SendDroppedFirstWarn {
		t.Fatalf("second send result = %v, want SendDroppedFirstWarn (reserved slot protected)", res)
	}
}

func TestWaitReturnsShutdownAfterMarkShutdown(t *testing.T) {
	h := New("a", "", 4, nil)
	h.MarkShutdown()
	rec := h.Wait(time.Second)
	if rec.Kind != event.Shutdown {
		t.Fatalf("kind = %v, want Shutdown", rec.Kind)
	}
}

func TestWaitReturnsLogMessageFromTap(t *testing.T) {
	h := New("a", "", 4, nil)
	tap := logbuffer.New(10, "info")
	h.SetLogTap(tap)
	tap.Write("core", "info", "hello")

	rec := h.Wait(time.Second)
	if rec.Kind != event.LogMessage {
		t.Fatalf("kind = %v, want LogMessage", rec.Kind)
	}
	payload, ok := rec.Payload.(event.LogMessagePayload)
	if !ok || payload.Text != "hello" {
		t.Fatalf("payload = %+v, want text=hello", rec.Payload)
	}
}

func TestWaitTimesOutWithNone(t *testing.T) {
	h := New("a", "", 4, nil)
	start := time.Now()
	rec := h.Wait(20 * time.Millisecond)
	if rec.Kind != event.None {
		t.Fatalf("kind = %v, want None", rec.Kind)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("Wait returned before its timeout elapsed")
	}
}

func TestWakeupReturnsNoneWithoutConsumingTimeout(t *testing.T) {
	h := New("a", "", 4, nil)
	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Wakeup()
	}()
	start := time.Now()
	rec := h.Wait(time.Second)
	if rec.Kind != event.None {
		t.Fatalf("kind = %v, want None", rec.Kind)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("Wait did not return promptly after Wakeup")
	}
}

func TestDestroyCallsOnDestroyOnceAndDrainsRing(t *testing.T) {
	calls := 0
	h := New("a", "", 4, func(*Handle) { calls++ })
	h.SendEvent(event.Record{Kind: event.Idle})

	h.Destroy()
	h.Destroy() // idempotent

	if calls != 1 {
		t.Fatalf("onDestroy called %d times, want 1", calls)
	}
	if n := h.ReservedEvents(); n != 0 {
		t.Fatalf("ReservedEvents after destroy = %d, want 0", n)
	}
	if rec := h.Wait(0); rec.Kind == event.Idle {
		t.Fatal("Wait after destroy returned the buffered Idle event, want ring drained")
	}
}
