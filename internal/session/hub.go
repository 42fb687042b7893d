package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"codesync/internal/metrics"
	"codesync/internal/models"
	"codesync/internal/utils"
)

// ErrInvalidRoomID rejects join attempts whose room identifier is not a
// well-formed UUID. No room is created or touched for such a request.
var ErrInvalidRoomID = errors.New("invalid room id")

// HistorySink receives the session_ended event when a room is destroyed.
type HistorySink interface {
	PublishSessionEnded(event models.SessionEndedEvent) error
}

// Hub is the session registry: it maps room identifiers to live rooms,
// creates rooms lazily on first join, and destroys them the moment the last
// participant leaves.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	log     *utils.Logger
	history HistorySink
}

func NewHub(log *utils.Logger) *Hub {
	return &Hub{rooms: make(map[string]*Room), log: log}
}

// SetHistorySink wires an optional session_ended publisher.
func (h *Hub) SetHistorySink(sink HistorySink) { h.history = sink }

// CreateOrJoin validates the room identifier, creates the room if it does
// not exist yet, and joins the client. The snapshot is delivered to the
// joining client inside Room.Join, before any broadcast can reach it.
func (h *Hub) CreateOrJoin(roomID, username string, c *Client) (*Room, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, ErrInvalidRoomID
	}

	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		h.rooms[roomID] = room
		metrics.RoomsActive.Inc()
	}
	h.mu.Unlock()

	room.Join(c, username)
	metrics.JoinsTotal.Inc()
	return room, nil
}

// Leave removes the client from its room and destroys the room when it
// empties. Destruction publishes the session_ended event best-effort.
func (h *Hub) Leave(room *Room, c *Client) {
	if room == nil {
		return
	}
	if remaining := room.Leave(c); remaining > 0 {
		return
	}

	h.mu.Lock()
	// A new participant may have joined between Leave and this lock; only
	// destroy if the room is still empty.
	if room.ParticipantCount() == 0 {
		delete(h.rooms, room.ID)
		metrics.RoomsActive.Dec()
	} else {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	if h.history != nil {
		event := room.Summary()
		go func() {
			if err := h.history.PublishSessionEnded(event); err != nil {
				h.log.Error("publish session_ended failed", "roomId", event.RoomID, "error", err.Error())
			}
		}()
	}
}

// Get returns the room for an identifier if it exists.
func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// RoomCount reports the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
