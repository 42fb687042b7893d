package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"codesync/internal/models"
)

// sendBuffer bounds the per-client outbound queue. Broadcasts enqueue and
// return; a client that cannot drain this many frames starts dropping.
const sendBuffer = 64

// Client wraps one WebSocket connection. All frames leave through a single
// buffered channel so delivery order matches enqueue order per connection.
type Client struct {
	Conn *websocket.Conn

	mu     sync.Mutex
	hook   func(models.WSFrame)
	out    chan models.WSFrame
	closed bool
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		out:  make(chan models.WSFrame, sendBuffer),
	}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.WSFrame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send enqueues a frame without blocking. Frames to a closed or saturated
// client are dropped.
func (c *Client) Send(frame models.WSFrame) {
	c.mu.Lock()
	if c.hook != nil {
		hook := c.hook
		c.mu.Unlock()
		hook(frame)
		return
	}
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.out <- frame:
	default:
	}
	c.mu.Unlock()
}

// WritePump drains the outbound queue onto the connection. It returns when
// Close is called or a write fails; the read loop owns connection teardown.
func (c *Client) WritePump() {
	for frame := range c.out {
		if c.Conn == nil {
			continue
		}
		if err := c.Conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

// Close stops the outbound queue. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}
