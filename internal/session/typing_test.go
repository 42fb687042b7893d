package session

import (
	"testing"
	"time"

	"codesync/internal/models"
)

const testTypingTTL = 60 * time.Millisecond

func typingRoom() (*Room, *Client, *frameCapture) {
	room := NewRoom("room")
	room.typingTTL = testTypingTTL

	typist, _ := hookedClient()
	watcher, capture := hookedClient()
	room.Join(typist, "typist")
	room.Join(watcher, "watcher")
	return room, typist, capture
}

func TestTypingBurstEmitsOneStartAndOneStop(t *testing.T) {
	room, typist, capture := typingRoom()

	for i := 0; i < 10; i++ {
		room.TypingStart(typist)
		time.Sleep(testTypingTTL / 6)
	}

	if got := capture.ofType(models.EventUserTypingStart); len(got) != 1 {
		t.Fatalf("expected exactly one typing-start broadcast, got %d", len(got))
	}
	if got := capture.ofType(models.EventUserTypingStop); len(got) != 0 {
		t.Fatalf("expected no stop while refreshing, got %d", len(got))
	}

	time.Sleep(testTypingTTL * 3)

	stops := capture.ofType(models.EventUserTypingStop)
	if len(stops) != 1 {
		t.Fatalf("expected exactly one typing-stop after quiet period, got %d", len(stops))
	}
	if stops[0].Data.(models.TypingEvent).Username != "typist" {
		t.Fatalf("unexpected stop payload: %#v", stops[0].Data)
	}
}

func TestTypingExplicitStopCancelsTimer(t *testing.T) {
	room, typist, capture := typingRoom()

	room.TypingStart(typist)
	room.TypingStop(typist)

	if got := capture.ofType(models.EventUserTypingStop); len(got) != 1 {
		t.Fatalf("expected one stop broadcast, got %d", len(got))
	}

	// The expiry timer was cancelled: the quiet period must not add another.
	time.Sleep(testTypingTTL * 3)
	if got := capture.ofType(models.EventUserTypingStop); len(got) != 1 {
		t.Fatalf("timer expiry after explicit stop double-broadcast, got %d stops", len(got))
	}
}

func TestTypingStopWhenIdleIsNoop(t *testing.T) {
	room, typist, capture := typingRoom()

	room.TypingStop(typist)

	if got := capture.ofType(models.EventUserTypingStop); len(got) != 0 {
		t.Fatalf("stop while idle must not broadcast, got %d", len(got))
	}
}

func TestTypingRestartAfterStopReEmitsStart(t *testing.T) {
	room, typist, capture := typingRoom()

	room.TypingStart(typist)
	room.TypingStop(typist)
	room.TypingStart(typist)

	if got := capture.ofType(models.EventUserTypingStart); len(got) != 2 {
		t.Fatalf("expected start broadcast per idle-to-active edge, got %d", len(got))
	}
}

func TestTypingStateDiscardedOnLeave(t *testing.T) {
	room, typist, capture := typingRoom()

	room.TypingStart(typist)
	room.Leave(typist)

	time.Sleep(testTypingTTL * 3)

	// Only the membership change is visible; no typing-stop for a gone
	// participant.
	if got := capture.ofType(models.EventUserTypingStop); len(got) != 0 {
		t.Fatalf("expected no typing-stop after leave, got %d", len(got))
	}
}

func TestTypingFromNonParticipantIgnored(t *testing.T) {
	room, _, capture := typingRoom()
	stranger, _ := hookedClient()

	room.TypingStart(stranger)

	if got := capture.ofType(models.EventUserTypingStart); len(got) != 0 {
		t.Fatalf("non-participant typing must be ignored, got %d", len(got))
	}
}
