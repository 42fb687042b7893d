package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"codesync/internal/exec"
	"codesync/internal/llm"
	"codesync/internal/metrics"
	"codesync/internal/models"
	"codesync/internal/session"
	"codesync/internal/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	runTimeout = 12 * time.Second
	aiTimeout  = 30 * time.Second
)

// Runner executes a code snippet to completion.
type Runner interface {
	RunOnce(ctx context.Context, lang models.Language, code string, limits exec.SandboxLimits) (exec.RunOutput, error)
}

type Handlers struct {
	log      *utils.Logger
	hub      *session.Hub
	runner   Runner
	provider llm.Provider
	limits   exec.SandboxLimits
}

// NewHandlers wires the handler set. provider may be nil, in which case
// /ask-ai reports the assistant as unavailable.
func NewHandlers(log *utils.Logger, hub *session.Hub, runner Runner, provider llm.Provider, limits exec.SandboxLimits) *Handlers {
	return &Handlers{
		log:      log,
		hub:      hub,
		runner:   runner,
		provider: provider,
		limits:   limits,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

/*** Room channel ***/

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// RoomWS owns one client connection for its whole lifetime: join, event
// loop, and implicit leave on any read failure (disconnect detection).
func (h *Handlers) RoomWS(w http.ResponseWriter, r *http.Request) {
	if utils.TokenAuthEnabled() {
		if _, err := utils.ValidateRoomToken(r.URL.Query().Get("token")); err != nil {
			http.Error(w, "invalid room token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	client := session.NewClient(conn)
	go client.WritePump()
	defer client.Close()

	stopPing := h.startHeartbeat(conn)
	defer stopPing()

	var room *session.Room
	defer func() {
		// Transport failure or explicit close: the participant leaves and the
		// room is destroyed if it empties.
		h.hub.Leave(room, client)
	}()

	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case models.EventJoinRoom:
			var join models.JoinRequest
			unmarshal(frame.Data, &join)
			if room != nil {
				client.Send(errFrame("already_joined"))
				continue
			}
			if strings.TrimSpace(join.Username) == "" {
				client.Send(errFrame("invalid_username"))
				continue
			}
			joined, err := h.hub.CreateOrJoin(join.RoomID, join.Username, client)
			if err != nil {
				client.Send(errFrame("invalid_room_id"))
				continue
			}
			room = joined

		case models.EventLeaveRoom:
			h.hub.Leave(room, client)
			room = nil

		case models.EventUpdateCode:
			var update models.CodeUpdate
			unmarshal(frame.Data, &update)
			if room == nil {
				client.Send(errFrame("not_in_room"))
				continue
			}
			room.UpdateCode(client, update.Code)

		case models.EventUpdateLanguage:
			var update models.LanguageUpdate
			unmarshal(frame.Data, &update)
			if room == nil {
				client.Send(errFrame("not_in_room"))
				continue
			}
			if !update.LanguageUsed.Valid() {
				client.Send(errFrame("unsupported_language"))
				continue
			}
			room.UpdateLanguage(client, update.LanguageUsed)

		case models.EventTypingStart:
			if room != nil {
				room.TypingStart(client)
			}

		case models.EventTypingStop:
			if room != nil {
				room.TypingStop(client)
			}

		default:
			client.Send(errFrame("unknown_type"))
		}
	}
}

// startHeartbeat arms the read deadline and keeps it refreshed with pings.
// A peer that stops answering pongs trips the deadline, which surfaces as a
// read error and tears the session down.
func (h *Handlers) startHeartbeat(conn *websocket.Conn) (stop func()) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

/*** Execution relay ***/

func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	if !req.Language.Valid() {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{Code: "unsupported_language", Message: string(req.Language)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	out, err := h.runner.RunOnce(ctx, req.Language, req.Code, h.limits)
	if err != nil {
		h.log.Error("code execution failed", "language", req.Language, "error", err.Error())
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{Code: "execution_error", Message: "could not run the code"})
		return
	}

	result := models.RunResult{
		Stdout:        out.Stdout,
		Stderr:        out.Stderr,
		CompileOutput: out.CompileOutput,
	}
	if out.TimedOut && result.Stdout == "" && result.Stderr == "" && result.CompileOutput == "" {
		result.Stderr = fmt.Sprintf("Execution timed out after %s.", h.limits.WallTime)
	}
	utils.JSON(w, http.StatusOK, result)
}

/*** AI assistance relay ***/

func (h *Handlers) AskAI(w http.ResponseWriter, r *http.Request) {
	var req models.AIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{Code: "invalid_input", Message: "code excerpt is required"})
		return
	}
	if h.provider == nil {
		utils.JSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Code: "ai_unavailable", Message: "no AI provider configured"})
		return
	}

	prompt := buildAssistPrompt(req)

	ctx, cancel := context.WithTimeout(r.Context(), aiTimeout)
	defer cancel()

	text, err := h.provider.GenerateAssist(ctx, prompt)
	if err != nil {
		h.log.Error("AI provider error", "provider", h.provider.GetProviderName(), "error", err.Error())
		utils.JSON(w, http.StatusBadGateway, models.ErrorResponse{Code: "ai_error", Message: "failed to get a response from the AI"})
		return
	}
	utils.JSON(w, http.StatusOK, models.AIResponse{Response: text})
}

func buildAssistPrompt(req models.AIRequest) string {
	return req.Prompt + "\n\n```\n" + req.Code + "\n```\n"
}

func unmarshal(in interface{}, out interface{}) {
	b, _ := json.Marshal(in)
	_ = json.Unmarshal(b, out)
}

func errFrame(msg string) models.WSFrame {
	return models.WSFrame{Type: models.EventError, Data: msg}
}
