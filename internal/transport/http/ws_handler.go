package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pubgame-service/internal/app"
	"pubgame-service/internal/bus"
	"pubgame-service/internal/domain"
)

// WSHandler bridges websocket clients onto the game bus. Three roles
// connect: the host display (drives rounds), remotes (one per player,
// submit answers), and the admin console (relays confirms through the
// status topic).
type WSHandler struct {
	orch     *app.Orchestrator
	channel  bus.Channel
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(orch *app.Orchestrator, channel bus.Channel, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		orch:    orch,
		channel: channel,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type answerPayload struct {
	AnswerIndex    int `json:"answerIndex"`
	ResponseTimeMs int `json:"responseTimeMs"`
}

type startRoundPayload struct {
	Category   string `json:"category"`
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
}

type confirmPayload struct {
	Name string `json:"name"`
}

// sender funnels outbound messages to the writer goroutine. send reports
// false once the writer has exited so read-side handlers never block on a
// dead connection.
type sender struct {
	ch   chan outboundMessage
	done <-chan struct{}
}

func (s *sender) send(msg outboundMessage) bool {
	select {
	case s.ch <- msg:
		return true
	case <-s.done:
		return false
	}
}

// ServeWS upgrades the connection and runs the role-specific loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	role := r.URL.Query().Get("role")
	name := r.URL.Query().Get("name")
	if gameID == "" || role == "" {
		http.Error(w, "missing gameId or role", http.StatusBadRequest)
		return
	}
	if role == "remote" && name == "" {
		http.Error(w, "remotes need a name", http.StatusBadRequest)
		return
	}
	if gameID != h.orch.GameID() {
		http.Error(w, domain.ErrGameNotFound.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	status, cancel, err := h.channel.SubscribeStatus(r.Context(), gameID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})
	out := &sender{ch: send, done: writerDone}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("write failed, dropping connection")
				return
			}
		}
	}()

	// every client mirrors the status topic
	go func() {
		defer close(pumpDone)
		for {
			select {
			case evt, ok := <-status:
				if !ok {
					return
				}
				if !out.send(outboundMessage{Type: "status", Payload: evt}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if role == "remote" {
		h.orch.JoinPlayer(name)
		out.send(outboundMessage{Type: "joined", Payload: h.orch.Scoreboard()})
	}

	h.log.Info().Str("game_id", gameID).Str("role", role).Str("player", name).Msg("client connected")

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch role {
		case "remote":
			h.handleRemote(r.Context(), gameID, name, inbound, out)
		case "host":
			h.handleHost(r.Context(), inbound, out)
		case "admin":
			h.handleAdmin(r.Context(), gameID, inbound, out)
		default:
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "unknown role"}})
		}
	}

	close(closeSignals)
	<-pumpDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleRemote(ctx context.Context, gameID, name string, inbound inboundMessage, out *sender) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
			return
		}
		ans := domain.PlayerAnswer{
			PlayerName:     name,
			Value:          payload.AnswerIndex,
			ResponseTimeMs: payload.ResponseTimeMs,
		}
		if err := h.channel.PublishAnswer(ctx, gameID, ans); err != nil {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	default:
		out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}

func (h *WSHandler) handleHost(ctx context.Context, inbound inboundMessage, out *sender) {
	switch inbound.Type {
	case "startRound":
		var payload startRoundPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid startRound payload"}})
			return
		}
		round, err := h.orch.StartRound(ctx, payload.Category, domain.ModeType(payload.Type), payload.Difficulty)
		if err != nil {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		out.send(outboundMessage{Type: "roundStarted", Payload: round})
	case "confirmCorrect", "confirmWrong":
		var payload confirmPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid confirm payload"}})
			return
		}
		var res domain.RoundResult
		var err error
		if inbound.Type == "confirmCorrect" {
			res, err = h.orch.ConfirmCorrect(payload.Name)
		} else {
			res, err = h.orch.ConfirmWrong(payload.Name)
		}
		if err != nil {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		out.send(outboundMessage{Type: "confirmResult", Payload: res})
	case "pause":
		h.orch.PauseRound()
	case "resume":
		h.orch.ResumeRound()
	case "stop":
		h.orch.StopRound()
	case "scoreboard":
		out.send(outboundMessage{Type: "scoreboard", Payload: h.orch.Scoreboard()})
	case "snapshot":
		if snap, ok := h.orch.CurrentSnapshot(); ok {
			out.send(outboundMessage{Type: "snapshot", Payload: snap})
		} else {
			out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "no live round"}})
		}
	default:
		out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}

// handleAdmin publishes confirm relays on the status topic; the
// orchestrator picks them up through the same subscription remotes use.
func (h *WSHandler) handleAdmin(ctx context.Context, gameID string, inbound inboundMessage, out *sender) {
	var action domain.Action
	switch inbound.Type {
	case "confirmCorrect":
		action = domain.ActionAdminConfirmCorrect
	case "confirmWrong":
		action = domain.ActionAdminConfirmWrong
	case "scoreboard":
		out.send(outboundMessage{Type: "scoreboard", Payload: h.orch.Scoreboard()})
		return
	default:
		out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		return
	}

	var payload confirmPayload
	if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
		out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid confirm payload"}})
		return
	}
	evt := domain.StatusEvent{Action: action, Name: payload.Name}
	if err := h.channel.PublishStatus(ctx, gameID, evt); err != nil {
		out.send(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}
}
