package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pubgame-service/internal/bus"
	"pubgame-service/internal/domain"
	"pubgame-service/internal/engine"
)

// ContentProvider produces round content for a (category, type, difficulty)
// request.
type ContentProvider interface {
	GenerateRound(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error)
}

// Hooks are in-process listeners for the host display. Both may be nil.
type Hooks struct {
	// OnUpdate receives a fresh snapshot after every observable transition
	// (timer ticks, pre-game countdowns, buzzes, reveals).
	OnUpdate func(engine.Snapshot)
	// OnResponse receives every answer accepted off the answer topic, for
	// the host's recent-responses feed.
	OnResponse func(domain.PlayerAnswer)
}

// Orchestrator is the host-side controller for one game: it builds rounds
// through the factory, translates state-machine callbacks into status-topic
// publishes, and routes answer-topic messages back into the live mode.
// Admin confirms arriving on the status topic are relayed into the same
// confirm path the host uses.
type Orchestrator struct {
	id      string
	gameID  string
	channel bus.Channel
	content ContentProvider
	factory *engine.Factory
	clock   clockwork.Clock
	log     zerolog.Logger
	hooks   Hooks
	board   *scoreboard

	mu      sync.Mutex
	round   *domain.Round
	mode    *engine.Mode
	applied map[string]int
}

func NewOrchestrator(gameID string, channel bus.Channel, content ContentProvider, clock clockwork.Clock, log zerolog.Logger, hooks Hooks) *Orchestrator {
	log = log.With().Str("component", "orchestrator").Str("game_id", gameID).Logger()
	return &Orchestrator{
		id:      uuid.NewString(),
		gameID:  gameID,
		channel: channel,
		content: content,
		factory: engine.NewFactory(clock, log),
		clock:   clock,
		log:     log,
		hooks:   hooks,
		board:   newScoreboard(gameID, clock.Now),
		applied: make(map[string]int),
	}
}

// Run consumes the answer topic and the admin confirms off the status topic
// until ctx is canceled. It blocks; callers run it in its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) error {
	answers, cancelAnswers, err := o.channel.SubscribeAnswer(ctx, o.gameID)
	if err != nil {
		return fmt.Errorf("subscribe answers: %w", err)
	}
	defer cancelAnswers()

	status, cancelStatus, err := o.channel.SubscribeStatus(ctx, o.gameID)
	if err != nil {
		return fmt.Errorf("subscribe status: %w", err)
	}
	defer cancelStatus()

	for {
		select {
		case <-ctx.Done():
			o.factory.Cleanup()
			return ctx.Err()
		case ans, ok := <-answers:
			if !ok {
				return nil
			}
			o.routeAnswer(ans)
		case evt, ok := <-status:
			if !ok {
				return nil
			}
			o.relayAdmin(ctx, evt)
		}
	}
}

// GameID reports the game this orchestrator hosts.
func (o *Orchestrator) GameID() string {
	return o.gameID
}

// JoinPlayer registers a player on the game scoreboard.
func (o *Orchestrator) JoinPlayer(playerName string) {
	o.board.join(playerName)
	o.log.Info().Str("player", playerName).Msg("player joined")
}

// Scoreboard returns the current cross-round standings.
func (o *Orchestrator) Scoreboard() domain.Scoreboard {
	return o.board.snapshot()
}

// StartRound builds and launches a round. SHOW_QUESTION goes out right
// away; START_VOTING follows once the reading hold and go-signal have run,
// so remotes are never told to vote before the round is live. A content
// decode failure aborts the round before any state machine exists.
func (o *Orchestrator) StartRound(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.Round, error) {
	if !typ.Valid() {
		return domain.Round{}, domain.ErrUnknownMode
	}

	content, err := o.content.GenerateRound(ctx, category, typ, difficulty)
	if err != nil {
		return domain.Round{}, fmt.Errorf("generate round content: %w", err)
	}
	content.Type = typ

	round := domain.Round{
		ID:       uuid.NewString(),
		GameID:   o.gameID,
		Type:     typ,
		Category: category,
		Content:  content,
	}

	var mode *engine.Mode
	mode, err = o.factory.CreateMode(typ, content, engine.Callbacks{
		OnTimerTick:   func(int) { o.pushUpdate(mode) },
		OnPreGameTick: func(int) { o.pushUpdate(mode) },
		OnTimerEnd:    func() { o.roundTimedOut(mode) },
		OnBuzz: func(playerName string) {
			o.publish(domain.StatusEvent{Action: domain.ActionPlayerLocked, Name: playerName})
			o.pushUpdate(mode)
		},
		OnAnswer: func(outcome domain.AnswerOutcome) { o.answerScored(mode, outcome) },
	})
	if err != nil {
		return domain.Round{}, err
	}

	o.mu.Lock()
	o.round = &round
	o.mode = mode
	o.applied = make(map[string]int)
	o.mu.Unlock()

	o.publish(domain.StatusEvent{Action: domain.ActionShowQuestion, Type: typ, Payload: content})
	o.log.Info().Str("round_id", round.ID).Str("type", string(typ)).Str("category", category).Msg("round created")

	go func() {
		if err := mode.Start(ctx); err != nil {
			o.log.Error().Err(err).Str("round_id", round.ID).Msg("round start aborted")
			return
		}
		if mode.Phase() != engine.PhaseActive {
			return // torn down mid pre-game
		}
		o.publish(domain.StatusEvent{Action: domain.ActionStartVoting, Type: typ})
		o.pushUpdate(mode)
	}()

	return round, nil
}

// ConfirmCorrect resolves the current buzz in the claimant's favor and
// broadcasts the round end with the winner's running total.
func (o *Orchestrator) ConfirmCorrect(playerName string) (domain.RoundResult, error) {
	mode := o.currentMode()
	if mode == nil {
		return domain.RoundResult{}, domain.ErrRoundNotActive
	}
	res, err := mode.ConfirmCorrect(playerName)
	if err != nil {
		return domain.RoundResult{}, err
	}
	total := o.board.applyDelta(playerName, res.Points)
	o.publish(domain.StatusEvent{
		Action:      domain.ActionRoundEnded,
		Winner:      playerName,
		Points:      res.Points,
		TotalPoints: total,
	})
	o.pushUpdate(mode)
	return res, nil
}

// ConfirmWrong penalizes the claimant and tells the remotes the named
// player stays locked out while everyone else resumes.
func (o *Orchestrator) ConfirmWrong(playerName string) (domain.RoundResult, error) {
	mode := o.currentMode()
	if mode == nil {
		return domain.RoundResult{}, domain.ErrRoundNotActive
	}
	res, err := mode.ConfirmWrong(playerName)
	if err != nil {
		return domain.RoundResult{}, err
	}
	o.board.applyDelta(playerName, res.Points)
	o.publish(domain.StatusEvent{
		Action:        domain.ActionBlockedError,
		BlockedPlayer: playerName,
		Points:        res.Points,
	})
	o.pushUpdate(mode)
	return res, nil
}

// PauseRound/ResumeRound are host controls; both are no-ops outside the
// phases where they apply.
func (o *Orchestrator) PauseRound() {
	if mode := o.currentMode(); mode != nil {
		mode.Pause()
		o.pushUpdate(mode)
	}
}

func (o *Orchestrator) ResumeRound() {
	if mode := o.currentMode(); mode != nil {
		mode.Resume()
		o.pushUpdate(mode)
	}
}

// StopRound ends the round early, revealed, and tells the remotes to idle.
func (o *Orchestrator) StopRound() {
	mode := o.currentMode()
	if mode == nil {
		return
	}
	mode.Stop()
	o.publish(domain.StatusEvent{Action: domain.ActionReveal})
	o.pushUpdate(mode)
}

// CurrentSnapshot exposes the live round's display projection.
func (o *Orchestrator) CurrentSnapshot() (engine.Snapshot, bool) {
	mode := o.currentMode()
	if mode == nil {
		return engine.Snapshot{}, false
	}
	return mode.Project(), true
}

// Close tears down the live round.
func (o *Orchestrator) Close() {
	o.factory.Cleanup()
	o.mu.Lock()
	o.mode = nil
	o.round = nil
	o.mu.Unlock()
}

func (o *Orchestrator) currentMode() *engine.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Orchestrator) routeAnswer(ans domain.PlayerAnswer) {
	mode := o.currentMode()
	if mode == nil {
		o.log.Debug().Str("player", ans.PlayerName).Msg("answer with no live round")
		return
	}
	if h := o.hooks.OnResponse; h != nil {
		h(ans)
	}
	mode.HandleAnswer(ans.PlayerName, ans.Value, ans.ResponseTimeMs)
}

func (o *Orchestrator) relayAdmin(_ context.Context, evt domain.StatusEvent) {
	switch evt.Action {
	case domain.ActionAdminConfirmCorrect:
		if _, err := o.ConfirmCorrect(evt.Name); err != nil {
			o.log.Warn().Err(err).Str("player", evt.Name).Msg("admin confirm correct rejected")
		}
	case domain.ActionAdminConfirmWrong:
		if _, err := o.ConfirmWrong(evt.Name); err != nil {
			o.log.Warn().Err(err).Str("player", evt.Name).Msg("admin confirm wrong rejected")
		}
	}
}

// answerScored handles a simultaneous-mode verdict: the points land on the
// scoreboard immediately, the round keeps running until timeout. The channel
// is at-least-once and players may re-answer while the round is active, so
// only each player's latest verdict counts; a redelivery applies a zero
// delta and a changed answer replaces the earlier points.
func (o *Orchestrator) answerScored(mode *engine.Mode, outcome domain.AnswerOutcome) {
	o.board.join(outcome.PlayerName)
	o.mu.Lock()
	prev := o.applied[outcome.PlayerName]
	o.applied[outcome.PlayerName] = outcome.Points
	o.mu.Unlock()
	if delta := outcome.Points - prev; delta != 0 {
		o.board.applyDelta(outcome.PlayerName, delta)
	}
	o.pushUpdate(mode)
}

func (o *Orchestrator) roundTimedOut(mode *engine.Mode) {
	evt := domain.StatusEvent{Action: domain.ActionRoundEnded}
	if winners := mode.RouletteWinners(); winners != nil {
		evt.Winners = winners
	}
	o.publish(evt)
	o.pushUpdate(mode)
	o.log.Info().Msg("round ended on timeout")
}

func (o *Orchestrator) publish(evt domain.StatusEvent) {
	if err := o.channel.PublishStatus(context.Background(), o.gameID, evt); err != nil {
		o.log.Error().Err(err).Str("action", string(evt.Action)).Msg("status publish failed")
	}
}

func (o *Orchestrator) pushUpdate(mode *engine.Mode) {
	if h := o.hooks.OnUpdate; h != nil && mode != nil {
		h(mode.Project())
	}
}
