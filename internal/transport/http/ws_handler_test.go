package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pubgame-service/internal/app"
	"pubgame-service/internal/domain"
	"pubgame-service/internal/infra/memory"
)

type testRig struct {
	server *httptest.Server
	orch   *app.Orchestrator
	broker *memory.Broker
	clock  *clockwork.FakeClock
	stop   func()
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	clock := clockwork.NewFakeClock()
	broker := memory.NewBroker()
	provider := memory.NewContentRepository(memory.NewStaticContentLoader(map[string]domain.RoundContent{
		memory.StaticKey("geography", domain.ModeQuiz, ""): {
			Type:          domain.ModeQuiz,
			Question:      "Capital of Spain?",
			Options:       []string{"Madrid", "Barcelona", "Seville", "Valencia"},
			CorrectAnswer: "Madrid",
		},
	}), time.Minute)
	orch := app.NewOrchestrator("game-1", broker, provider, clock, zerolog.Nop(), app.Hooks{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = orch.Run(ctx) }()

	handler := NewWSHandler(orch, broker, zerolog.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)

	return &testRig{
		server: server,
		orch:   orch,
		broker: broker,
		clock:  clock,
		stop: func() {
			cancel()
			orch.Close()
			server.Close()
		},
	}
}

func (r *testRig) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + r.server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", query, err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// waitStatus drains ws messages until a status event with action arrives.
func waitStatus(t *testing.T, conn *websocket.Conn, action domain.Action) domain.StatusEvent {
	t.Helper()
	for i := 0; i < 32; i++ {
		typ, payload := readMessage(t, conn)
		if typ != "status" {
			continue
		}
		var evt domain.StatusEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if evt.Action == action {
			return evt
		}
	}
	t.Fatalf("never saw %s", action)
	return domain.StatusEvent{}
}

func TestRemoteBuzzOverWebsocket(t *testing.T) {
	rig := newRig(t)
	defer rig.stop()

	remote := rig.dial(t, "gameId=game-1&role=remote&name=Alice")
	defer remote.Close()

	if typ, _ := readMessage(t, remote); typ != "joined" {
		t.Fatalf("expected joined first, got %s", typ)
	}

	if _, err := rig.orch.StartRound(context.Background(), "geography", domain.ModeQuiz, ""); err != nil {
		t.Fatalf("start round: %v", err)
	}
	waitStatus(t, remote, domain.ActionShowQuestion)

	rig.clock.BlockUntil(1)
	rig.clock.Advance(10 * time.Second)
	rig.clock.BlockUntil(1)
	rig.clock.Advance(2 * time.Second)
	waitStatus(t, remote, domain.ActionStartVoting)

	buzz := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"answerIndex": domain.BuzzSentinel, "responseTimeMs": 250},
	}
	if err := remote.WriteJSON(buzz); err != nil {
		t.Fatalf("write buzz: %v", err)
	}

	locked := waitStatus(t, remote, domain.ActionPlayerLocked)
	if locked.Name != "Alice" {
		t.Fatalf("expected Alice locked, got %+v", locked)
	}
}

func TestHostDrivesRoundOverWebsocket(t *testing.T) {
	rig := newRig(t)
	defer rig.stop()

	host := rig.dial(t, "gameId=game-1&role=host")
	defer host.Close()

	start := map[string]any{
		"type":    "startRound",
		"payload": map[string]any{"category": "geography", "type": "QUIZ"},
	}
	if err := host.WriteJSON(start); err != nil {
		t.Fatalf("write startRound: %v", err)
	}

	sawRoundStarted := false
	for i := 0; i < 8 && !sawRoundStarted; i++ {
		typ, payload := readMessage(t, host)
		if typ == "roundStarted" {
			var round domain.Round
			if err := json.Unmarshal(payload, &round); err != nil {
				t.Fatalf("decode round: %v", err)
			}
			if round.Type != domain.ModeQuiz || round.GameID != "game-1" {
				t.Fatalf("unexpected round %+v", round)
			}
			sawRoundStarted = true
		}
	}
	if !sawRoundStarted {
		t.Fatal("host never saw roundStarted")
	}

	if err := host.WriteJSON(map[string]any{"type": "scoreboard"}); err != nil {
		t.Fatalf("write scoreboard request: %v", err)
	}
	for i := 0; i < 8; i++ {
		typ, payload := readMessage(t, host)
		if typ != "scoreboard" {
			continue
		}
		var board domain.Scoreboard
		if err := json.Unmarshal(payload, &board); err != nil {
			t.Fatalf("decode scoreboard: %v", err)
		}
		if board.GameID != "game-1" {
			t.Fatalf("unexpected scoreboard %+v", board)
		}
		return
	}
	t.Fatal("host never saw the scoreboard")
}

func TestAdminConfirmRelayOverWebsocket(t *testing.T) {
	rig := newRig(t)
	defer rig.stop()

	admin := rig.dial(t, "gameId=game-1&role=admin")
	defer admin.Close()

	if _, err := rig.orch.StartRound(context.Background(), "geography", domain.ModeQuiz, ""); err != nil {
		t.Fatalf("start round: %v", err)
	}
	waitStatus(t, admin, domain.ActionShowQuestion)

	rig.clock.BlockUntil(1)
	rig.clock.Advance(10 * time.Second)
	rig.clock.BlockUntil(1)
	rig.clock.Advance(2 * time.Second)
	waitStatus(t, admin, domain.ActionStartVoting)

	// lock the round, then resolve it from the admin console
	_ = rig.broker.PublishAnswer(context.Background(), "game-1", domain.PlayerAnswer{PlayerName: "Bob", Value: domain.BuzzSentinel})
	waitStatus(t, admin, domain.ActionPlayerLocked)

	confirm := map[string]any{
		"type":    "confirmCorrect",
		"payload": map[string]any{"name": "Bob"},
	}
	if err := admin.WriteJSON(confirm); err != nil {
		t.Fatalf("write confirm: %v", err)
	}

	ended := waitStatus(t, admin, domain.ActionRoundEnded)
	if ended.Winner != "Bob" {
		t.Fatalf("expected Bob to win, got %+v", ended)
	}
}

func TestRejectsMissingParams(t *testing.T) {
	rig := newRig(t)
	defer rig.stop()

	resp, err := http.Get(rig.server.URL + "/ws?role=remote&name=Alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing gameId, got %d", resp.StatusCode)
	}

	resp, err = http.Get(rig.server.URL + "/ws?gameId=game-1&role=remote")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a nameless remote, got %d", resp.StatusCode)
	}
}

func TestRejectsUnknownGame(t *testing.T) {
	rig := newRig(t)
	defer rig.stop()

	resp, err := http.Get(rig.server.URL + "/ws?gameId=game-9&role=host")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a game this instance does not host, got %d", resp.StatusCode)
	}
}

func TestSenderUnblocksWhenWriterExits(t *testing.T) {
	done := make(chan struct{})
	out := &sender{ch: make(chan outboundMessage, 1), done: done}

	if !out.send(outboundMessage{Type: "status"}) {
		t.Fatal("send must succeed while the buffer has room")
	}

	close(done) // writer gone, buffer full
	finished := make(chan bool, 1)
	go func() { finished <- out.send(outboundMessage{Type: "status"}) }()

	select {
	case ok := <-finished:
		if ok {
			t.Fatal("send must report failure once the writer has exited")
		}
	case <-time.After(time.Second):
		t.Fatal("send blocked with a full buffer and a dead writer")
	}
}
