package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"codesync/internal/models"
)

// echoServer upgrades every connection, records join requests, and lets the
// test push frames back to the most recent client.
type echoServer struct {
	server *httptest.Server
	joins  chan models.JoinRequest
	conns  chan *websocket.Conn
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	es := &echoServer{
		joins: make(chan models.JoinRequest, 8),
		conns: make(chan *websocket.Conn, 8),
	}
	upgrader := websocket.Upgrader{}
	es.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		es.conns <- ws
		for {
			var frame models.WSFrame
			if err := ws.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type == models.EventJoinRoom {
				raw, _ := json.Marshal(frame.Data)
				var req models.JoinRequest
				_ = json.Unmarshal(raw, &req)
				es.joins <- req
			}
		}
	}))
	t.Cleanup(es.server.Close)
	return es
}

func (es *echoServer) url() string {
	return "ws" + strings.TrimPrefix(es.server.URL, "http")
}

func (es *echoServer) acceptConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-es.conns:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatalf("server accepted no connection")
		return nil
	}
}

func (es *echoServer) waitJoin(t *testing.T) models.JoinRequest {
	t.Helper()
	select {
	case req := <-es.joins:
		return req
	case <-time.After(2 * time.Second):
		t.Fatalf("no join request arrived")
		return models.JoinRequest{}
	}
}

func TestJoinRoomValidatesBeforeNetwork(t *testing.T) {
	// No transport at all: validation failures must fire before any send.
	c := &Conn{subs: make(map[string]map[*Subscription]struct{}), down: make(chan struct{})}

	if err := c.JoinRoom("not-a-uuid", "alice"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed room id, got %v", err)
	}
	if err := c.JoinRoom(uuid.NewString(), " a "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short name, got %v", err)
	}
	if err := c.JoinRoom(uuid.NewString(), "alice"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("valid input on a dead transport should return ErrNotConnected, got %v", err)
	}
}

func TestJoinRoomSendsRequest(t *testing.T) {
	es := newEchoServer(t)
	conn, err := Dial(es.url())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	roomID := uuid.NewString()
	if err := conn.JoinRoom(roomID, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	req := es.waitJoin(t)
	if req.RoomID != roomID || req.Username != "alice" {
		t.Fatalf("unexpected join request: %#v", req)
	}
}

func TestSubscribeReceivesMatchingFrames(t *testing.T) {
	es := newEchoServer(t)
	conn, err := Dial(es.url())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	serverSide := es.acceptConn(t)

	sub := conn.Subscribe(models.EventCodeChange)
	other := conn.Subscribe(models.EventLanguageChange)

	if err := serverSide.WriteJSON(models.WSFrame{
		Type: models.EventCodeChange,
		Data: models.CodeChange{Code: "x := 1"},
	}); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case frame := <-sub.C:
		if frame.Type != models.EventCodeChange {
			t.Fatalf("unexpected frame: %#v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription received nothing")
	}

	select {
	case frame := <-other.C:
		t.Fatalf("language subscription must not see code frames: %#v", frame)
	default:
	}
}

func TestSubscriptionCancelClosesChannel(t *testing.T) {
	es := newEchoServer(t)
	conn, err := Dial(es.url())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := conn.Subscribe(models.EventClientList)
	sub.Cancel()
	sub.Cancel() // idempotent

	if _, ok := <-sub.C; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestServerCloseMarksConnectionDown(t *testing.T) {
	es := newEchoServer(t)
	conn, err := Dial(es.url())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	serverSide := es.acceptConn(t)

	down := conn.Down()
	serverSide.Close()

	select {
	case <-down:
	case <-time.After(2 * time.Second):
		t.Fatalf("down channel never closed")
	}
	if conn.Connected() {
		t.Fatalf("connection should report down")
	}
}
