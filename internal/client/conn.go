package client

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"codesync/internal/models"
)

var (
	// ErrValidation flags input rejected before any network call.
	ErrValidation = errors.New("validation failed")

	// ErrNotConnected is returned when the transport is down.
	ErrNotConnected = errors.New("not connected")
)

const subBuffer = 32

// Subscription is a handle on one event stream. Frames arrive on C until
// Cancel is called, which closes the channel.
type Subscription struct {
	C chan models.WSFrame

	conn  *Conn
	event string
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	set, ok := s.conn.subs[s.event]
	if !ok {
		return
	}
	if _, attached := set[s]; !attached {
		return
	}
	delete(set, s)
	close(s.C)
}

// Conn owns the bidirectional room channel for one client process. It is an
// explicitly passed handle, opened on session start and closed on leave;
// there is no ambient singleton.
type Conn struct {
	url string

	mu       sync.Mutex
	ws       *websocket.Conn
	subs     map[string]map[*Subscription]struct{}
	down     chan struct{}
	closed   bool
	joined   bool
	roomID   string
	username string
}

// Dial opens the room channel.
func Dial(url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Conn{
		url:  url,
		ws:   ws,
		subs: make(map[string]map[*Subscription]struct{}),
		down: make(chan struct{}),
	}
	go c.readLoop(ws)
	return c, nil
}

// Subscribe registers interest in one event type.
func (c *Conn) Subscribe(event string) *Subscription {
	sub := &Subscription{
		C:     make(chan models.WSFrame, subBuffer),
		conn:  c,
		event: event,
	}
	c.mu.Lock()
	if c.subs[event] == nil {
		c.subs[event] = make(map[*Subscription]struct{})
	}
	c.subs[event][sub] = struct{}{}
	c.mu.Unlock()
	return sub
}

// Down returns a channel closed when the transport is lost. The watchdog
// selects on it; after a successful restore a fresh channel takes its place.
func (c *Conn) Down() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.down
}

// Connected reports whether the transport is currently up.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// JoinRoom validates inputs locally, then requests membership. The room id
// must be a UUID and the name at least two characters; failures never reach
// the network.
func (c *Conn) JoinRoom(roomID, username string) error {
	if _, err := uuid.Parse(roomID); err != nil {
		return fmt.Errorf("%w: room id must be a UUID", ErrValidation)
	}
	if len(strings.TrimSpace(username)) < 2 {
		return fmt.Errorf("%w: username must be at least 2 characters", ErrValidation)
	}
	c.mu.Lock()
	c.roomID = roomID
	c.username = strings.TrimSpace(username)
	c.joined = true
	c.mu.Unlock()
	return c.send(models.WSFrame{
		Type: models.EventJoinRoom,
		Data: models.JoinRequest{RoomID: roomID, Username: username},
	})
}

// LeaveRoom requests explicit departure.
func (c *Conn) LeaveRoom() error {
	c.mu.Lock()
	roomID := c.roomID
	c.joined = false
	c.mu.Unlock()
	return c.send(models.WSFrame{
		Type: models.EventLeaveRoom,
		Data: models.LeaveRequest{RoomID: roomID},
	})
}

// UpdateCode pushes a whole-document replacement.
func (c *Conn) UpdateCode(code string) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	return c.send(models.WSFrame{
		Type: models.EventUpdateCode,
		Data: models.CodeUpdate{RoomID: roomID, Code: code},
	})
}

// UpdateLanguage switches the shared language mode.
func (c *Conn) UpdateLanguage(lang models.Language) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	return c.send(models.WSFrame{
		Type: models.EventUpdateLanguage,
		Data: models.LanguageUpdate{RoomID: roomID, LanguageUsed: lang},
	})
}

// TypingStart signals typing activity; edge handling is server-side, so
// callers may send this on every keystroke.
func (c *Conn) TypingStart() error { return c.sendTyping(models.EventTypingStart) }

// TypingStop explicitly clears the typing flag.
func (c *Conn) TypingStop() error { return c.sendTyping(models.EventTypingStop) }

func (c *Conn) sendTyping(event string) error {
	c.mu.Lock()
	roomID, username := c.roomID, c.username
	c.mu.Unlock()
	return c.send(models.WSFrame{
		Type: event,
		Data: models.TypingSignal{RoomID: roomID, Username: username},
	})
}

func (c *Conn) send(frame models.WSFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(frame)
}

// Close tears the channel down for good; the watchdog will not restore a
// closed connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.joined = false
	if c.ws == nil {
		return nil
	}
	ws := c.ws
	c.ws = nil
	return ws.Close()
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		var frame models.WSFrame
		if err := ws.ReadJSON(&frame); err != nil {
			c.markDown(ws)
			return
		}
		c.dispatch(frame)
	}
}

func (c *Conn) dispatch(frame models.WSFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub := range c.subs[frame.Type] {
		select {
		case sub.C <- frame:
		default:
		}
	}
}

func (c *Conn) markDown(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws != ws {
		return
	}
	c.ws = nil
	close(c.down)
}

// redial re-establishes the transport and, if a room was joined, re-requests
// membership so the server delivers a fresh snapshot. Document updates that
// were in flight during the outage are not replayed.
func (c *Conn) redial() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("connection closed")
	}
	c.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return errors.New("connection closed")
	}
	c.ws = ws
	c.down = make(chan struct{})
	rejoin := c.joined
	roomID, username := c.roomID, c.username
	c.mu.Unlock()

	go c.readLoop(ws)

	if rejoin {
		return c.send(models.WSFrame{
			Type: models.EventJoinRoom,
			Data: models.JoinRequest{RoomID: roomID, Username: username},
		})
	}
	return nil
}
