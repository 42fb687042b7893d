package session

import (
	"time"

	"codesync/internal/models"
)

// Typing activity is edge-triggered: a participant hammering the keyboard
// produces one "started" broadcast, and one "stopped" broadcast after the
// quiet period (or an explicit stop), no matter how many start signals
// arrive in between.

// TypingStart marks a participant as typing. The first signal broadcasts
// "user-typing-start" to the other participants and arms the expiry timer;
// repeats only re-arm the timer.
func (r *Room) TypingStart(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.participants[c]
	if !ok {
		return
	}
	if t, active := r.typing[c]; active {
		t.Stop()
		r.armTypingLocked(c)
		return
	}
	r.armTypingLocked(c)
	r.broadcastLocked(c, models.WSFrame{
		Type: models.EventUserTypingStart,
		Data: models.TypingEvent{Username: name},
	})
}

// TypingStop clears the typing flag and broadcasts "user-typing-stop".
// A stop for an already-idle participant is a no-op, so an explicit stop
// racing the expiry timer cannot double-broadcast.
func (r *Room) TypingStop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, active := r.typing[c]
	if !active {
		return
	}
	t.Stop()
	delete(r.typing, c)
	r.broadcastTypingStopLocked(c)
}

func (r *Room) armTypingLocked(c *Client) {
	var t *time.Timer
	t = time.AfterFunc(r.typingTTL, func() { r.typingExpired(c, t) })
	r.typing[c] = t
}

// typingExpired fires when the quiet period elapses. The timer identity
// check discards stale callbacks from timers that were already replaced or
// stopped while this one waited on the lock.
func (r *Room) typingExpired(c *Client, t *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, active := r.typing[c]
	if !active || cur != t {
		return
	}
	delete(r.typing, c)
	r.broadcastTypingStopLocked(c)
}

func (r *Room) broadcastTypingStopLocked(c *Client) {
	name, ok := r.participants[c]
	if !ok {
		return
	}
	r.broadcastLocked(c, models.WSFrame{
		Type: models.EventUserTypingStop,
		Data: models.TypingEvent{Username: name},
	})
}
