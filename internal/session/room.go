package session

import (
	"sync"
	"time"

	"codesync/internal/models"
)

// typingTTL is the quiet period after which an active typing flag expires.
const typingTTL = 1500 * time.Millisecond

// Room holds the authoritative document state and connected participants for
// one session. All mutation goes through the room's mutex; broadcasts only
// enqueue onto client buffers, so no network I/O happens under the lock.
type Room struct {
	ID string

	mu           sync.Mutex
	participants map[*Client]string
	order        []*Client
	code         string
	language     models.Language
	typing       map[*Client]*time.Timer
	typingTTL    time.Duration
	everJoined   map[string]struct{}
	createdAt    time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		ID:           id,
		participants: make(map[*Client]string),
		language:     models.DefaultLanguage,
		typing:       make(map[*Client]*time.Timer),
		typingTTL:    typingTTL,
		everJoined:   make(map[string]struct{}),
		createdAt:    time.Now(),
	}
}

// Join delivers the current room snapshot to the joining client before it
// enters the broadcast set, then rebroadcasts the full member list. The
// joiner can therefore never miss state that predates it, and never receives
// a broadcast that was produced before its snapshot.
func (r *Room) Join(c *Client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Send(models.WSFrame{Type: models.EventCodeChange, Data: models.CodeChange{Code: r.code}})
	c.Send(models.WSFrame{Type: models.EventLanguageChange, Data: models.LanguageChange{LanguageUsed: r.language}})

	r.participants[c] = name
	r.order = append(r.order, c)
	r.everJoined[name] = struct{}{}
	r.broadcastMembersLocked()
}

// Leave removes a participant and reports how many remain. Typing state is
// discarded silently; the membership rebroadcast already removes the name
// from every remaining client's view.
func (r *Room) Leave(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[c]; !ok {
		return len(r.participants)
	}
	if t, ok := r.typing[c]; ok {
		t.Stop()
		delete(r.typing, c)
	}
	delete(r.participants, c)
	for i, p := range r.order {
		if p == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if len(r.participants) > 0 {
		r.broadcastMembersLocked()
	}
	return len(r.participants)
}

// Members returns the display names in join order. Duplicate names are
// allowed; identity is the connection, not the name.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked()
}

func (r *Room) membersLocked() []string {
	names := make([]string, 0, len(r.order))
	for _, c := range r.order {
		names = append(names, r.participants[c])
	}
	return names
}

func (r *Room) broadcastMembersLocked() {
	frame := models.WSFrame{
		Type: models.EventClientList,
		Data: models.ClientList{UsersList: r.membersLocked()},
	}
	for c := range r.participants {
		c.Send(frame)
	}
}

// Snapshot returns the current document text and language mode.
func (r *Room) Snapshot() (string, models.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code, r.language
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// UpdateCode replaces the document wholesale and rebroadcasts it to every
// participant except the sender. Last writer wins; arrival order is
// broadcast order.
func (r *Room) UpdateCode(sender *Client, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
	r.broadcastLocked(sender, models.WSFrame{
		Type: models.EventCodeChange,
		Data: models.CodeChange{Code: code},
	})
}

// UpdateLanguage switches the room's language mode, excluding the sender
// from the rebroadcast.
func (r *Room) UpdateLanguage(sender *Client, lang models.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.language = lang
	r.broadcastLocked(sender, models.WSFrame{
		Type: models.EventLanguageChange,
		Data: models.LanguageChange{LanguageUsed: lang},
	})
}

// Broadcast sends a frame to every participant except the sender.
func (r *Room) Broadcast(sender *Client, frame models.WSFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(sender, frame)
}

func (r *Room) broadcastLocked(sender *Client, frame models.WSFrame) {
	for c := range r.participants {
		if c == sender {
			continue
		}
		c.Send(frame)
	}
}

// Summary captures the final state for the session_ended event.
func (r *Room) Summary() models.SessionEndedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.everJoined))
	for name := range r.everJoined {
		names = append(names, name)
	}
	ended := time.Now()
	return models.SessionEndedEvent{
		RoomID:       r.ID,
		Participants: names,
		Language:     r.language,
		FinalCode:    r.code,
		StartedAt:    r.createdAt.Format(time.RFC3339),
		EndedAt:      ended.Format(time.RFC3339),
		DurationSec:  int(ended.Sub(r.createdAt) / time.Second),
	}
}
