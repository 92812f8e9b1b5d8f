package engine

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pubgame-service/internal/domain"
)

// Phase is the lifecycle position of a round.
type Phase int

const (
	PhaseInitialized Phase = iota
	PhaseReading
	PhaseGoSignal
	PhaseActive
	PhasePaused
	PhaseBuzzed
	PhaseRevealed
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "INITIALIZED"
	case PhaseReading:
		return "READING"
	case PhaseGoSignal:
		return "GO_SIGNAL"
	case PhaseActive:
		return "ACTIVE"
	case PhasePaused:
		return "PAUSED"
	case PhaseBuzzed:
		return "BUZZED"
	case PhaseRevealed:
		return "REVEALED"
	case PhaseStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

const goSignalDuration = 1400 * time.Millisecond

// Callbacks wires mode lifecycle events back to the orchestrator. All
// callbacks are invoked outside the mode's lock and may be nil.
type Callbacks struct {
	OnTimerTick   func(secondsLeft int)
	OnTimerEnd    func()
	OnBuzz        func(playerName string)
	OnAnswer      func(outcome domain.AnswerOutcome)
	OnPreGameTick func(secondsRemaining int)
}

// hooks holds the variant-specific reactions. Every hook runs while the
// mode's lock is held unless noted otherwise; hooks returning a func get
// that func executed after the lock is released (for callback emission).
type hooks struct {
	init     func(m *Mode)
	start    func(m *Mode, ctx context.Context, gen int) error // full custom start; nil uses the shared pre-game sequence
	active   func(m *Mode)                                     // entering ACTIVE via the shared sequence
	pause    func(m *Mode)
	resume   func(m *Mode)
	stop     func(m *Mode)          // full-reveal hook
	timeout  func(m *Mode, gen int) // runs WITHOUT the lock, replaces the default timeout; nil uses defaultTimeout
	buzz     func(m *Mode, playerName string)
	validate func(m *Mode, playerName string, value, elapsedMs int) domain.AnswerOutcome
	score    func(m *Mode, correct bool, elapsedMs int) int
	project  func(m *Mode) map[string]any
	cleanup  func(m *Mode)
}

// variantSpec is the closed per-type configuration: fixed constants plus the
// hook table. One entry per domain.ModeType lives in the registry.
type variantSpec struct {
	typ             domain.ModeType
	durationSeconds int
	readingDelay    time.Duration
	requiresBuzz    bool
	requiresReveal  bool // pre-question category reveal step on the display
	hooks           hooks
}

// Mode is the live state machine for one round. A single mutex serializes
// every transition, so timer ticks, buzzes and confirms are never processed
// concurrently; the gen counter invalidates scheduled work from a previous
// run so stale callbacks cannot touch newer state.
type Mode struct {
	spec  variantSpec
	clock clockwork.Clock
	log   zerolog.Logger
	cb    Callbacks

	mu        sync.Mutex
	content   domain.RoundContent
	phase     Phase
	remaining int
	claimant  string
	revealed  bool
	started   bool
	gen       int
	timer     *Timer
	state     any

	done     chan struct{}
	doneOnce sync.Once
}

func newMode(spec variantSpec, clock clockwork.Clock, log zerolog.Logger, cb Callbacks) *Mode {
	return &Mode{
		spec:  spec,
		clock: clock,
		log:   log.With().Str("mode", string(spec.typ)).Logger(),
		cb:    cb,
		phase: PhaseInitialized,
		done:  make(chan struct{}),
	}
}

// Type returns the fixed variant tag.
func (m *Mode) Type() domain.ModeType { return m.spec.typ }

// RequiresBuzz reports whether the round is a buzzer race.
func (m *Mode) RequiresBuzz() bool { return m.spec.requiresBuzz }

// RequiresCategoryReveal reports whether the display should run the
// category-selection step before the question, and the engine wait for its
// acknowledgment.
func (m *Mode) RequiresCategoryReveal() bool { return m.spec.requiresReveal }

// DurationSeconds returns the fixed timer duration for this variant.
func (m *Mode) DurationSeconds() int { return m.spec.durationSeconds }

// Initialize stores content and resets all per-round state. Must be called
// before Start.
func (m *Mode) Initialize(content domain.RoundContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++ // orphan anything scheduled by a previous run
	m.content = content
	m.phase = PhaseInitialized
	m.remaining = m.spec.durationSeconds
	m.claimant = ""
	m.revealed = false
	m.started = false
	if h := m.spec.hooks.init; h != nil {
		h(m)
	}
}

// Start runs the pre-game sequence (reading hold, go-signal flash) and then
// activates the timer. It blocks until the round is ACTIVE, so the caller
// can sequence the voting-open broadcast after it returns. A second Start on
// an already-started instance is a no-op.
func (m *Mode) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	gen := m.gen
	m.mu.Unlock()

	if h := m.spec.hooks.start; h != nil {
		return h(m, ctx, gen)
	}
	return m.runPreGameSequence(ctx, gen, m.spec.readingDelay)
}

// runPreGameSequence is the shared reading -> go-signal -> active flow.
// Input arriving during READING or GO_SIGNAL is dropped by the phase guards
// in HandleBuzz/HandleAnswer.
func (m *Mode) runPreGameSequence(ctx context.Context, gen int, readingDelay time.Duration) error {
	if !m.setPhase(gen, PhaseReading) {
		return nil
	}
	if readingDelay > 0 && !m.sleep(ctx, readingDelay) {
		return ctx.Err()
	}
	if !m.setPhase(gen, PhaseGoSignal) {
		return nil
	}
	if !m.sleep(ctx, goSignalDuration) {
		return ctx.Err()
	}
	m.activate(gen)
	return nil
}

func (m *Mode) activate(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	m.phase = PhaseActive
	m.startTimerLocked(gen)
	if h := m.spec.hooks.active; h != nil {
		h(m)
	}
	m.log.Info().Int("seconds", m.remaining).Msg("round active")
}

func (m *Mode) setPhase(gen int, p Phase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	m.phase = p
	return true
}

// mutate runs fn under the lock if the generation still matches. Used by
// scripted sequences that interleave sleeps with state changes.
func (m *Mode) mutate(gen int, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	fn()
	return true
}

// sleep waits for d on the injected clock, aborting if the mode is cleaned
// up or ctx is canceled. Returns true if the full duration elapsed.
func (m *Mode) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-m.clock.After(d):
		return true
	case <-m.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// schedule runs fn under the mode lock after d, unless the generation has
// moved on or the mode was cleaned up. fn may return a continuation that is
// executed after the lock is released (used for callback emission).
func (m *Mode) schedule(gen int, d time.Duration, fn func() func()) {
	go func() {
		select {
		case <-m.clock.After(d):
			m.mu.Lock()
			if m.gen != gen {
				m.mu.Unlock()
				return
			}
			after := fn()
			m.mu.Unlock()
			if after != nil {
				after()
			}
		case <-m.done:
		}
	}()
}

// startTimerLocked creates and starts the countdown for the current run,
// seeded from the frozen remaining value so restart-after-stop flows do not
// reset the clock.
func (m *Mode) startTimerLocked(gen int) {
	seconds := m.remaining
	if seconds <= 0 {
		seconds = m.spec.durationSeconds
		m.remaining = seconds
	}
	t := NewTimer(m.clock, seconds,
		func(left int) { m.handleTick(gen, left) },
		func() { m.handleExpire(gen) },
	)
	m.timer = t
	t.Start()
}

func (m *Mode) handleTick(gen, left int) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.remaining = left
	cb := m.cb.OnTimerTick
	m.mu.Unlock()
	if cb != nil {
		cb(left)
	}
}

func (m *Mode) handleExpire(gen int) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if h := m.spec.hooks.timeout; h != nil {
		h(m, gen)
		return
	}
	m.defaultTimeout(gen)
}

// defaultTimeout ends the round: STOPPED, revealed, timer and effects gone.
func (m *Mode) defaultTimeout(gen int) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	cb := m.cb.OnTimerEnd
	m.mu.Unlock()
	m.log.Info().Msg("round timed out")
	if cb != nil {
		cb()
	}
}

// HandleBuzz accepts the first buzz while ACTIVE with no claimant; anything
// else is silently dropped. On acceptance the timer and variant effects
// freeze and the orchestrator is notified.
func (m *Mode) HandleBuzz(playerName string) {
	m.mu.Lock()
	if m.phase != PhaseActive || m.claimant != "" || m.revealed {
		m.mu.Unlock()
		m.log.Debug().Str("player", playerName).Msg("buzz dropped")
		return
	}
	m.claimant = playerName
	m.phase = PhaseBuzzed
	if m.timer != nil {
		m.timer.Pause()
	}
	if h := m.spec.hooks.buzz; h != nil {
		h(m, playerName)
	}
	cb := m.cb.OnBuzz
	m.mu.Unlock()

	m.log.Info().Str("player", playerName).Msg("buzz accepted")
	if cb != nil {
		cb(playerName)
	}
}

// HandleAnswer routes a remote answer. For buzz modes only the buzz sentinel
// is meaningful; concrete values are spoken answers judged by the host. For
// simultaneous modes the variant validator scores the answer immediately,
// but the round keeps running until timeout or scripted reveal.
func (m *Mode) HandleAnswer(playerName string, value, responseTimeMs int) {
	if m.spec.requiresBuzz {
		if value == domain.BuzzSentinel {
			m.HandleBuzz(playerName)
		}
		return
	}

	m.mu.Lock()
	if m.phase != PhaseActive || m.revealed {
		m.mu.Unlock()
		m.log.Debug().Str("player", playerName).Msg("answer dropped")
		return
	}
	validate := m.spec.hooks.validate
	if validate == nil {
		m.mu.Unlock()
		return
	}
	outcome := validate(m, playerName, value, responseTimeMs)
	outcome.PlayerName = playerName
	cb := m.cb.OnAnswer
	m.mu.Unlock()

	if cb != nil {
		cb(outcome)
	}
}

// Pause freezes the timer and any variant effect. Valid only from ACTIVE.
func (m *Mode) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseActive {
		return
	}
	m.phase = PhasePaused
	if m.timer != nil {
		m.timer.Pause()
	}
	if h := m.spec.hooks.pause; h != nil {
		h(m)
	}
}

// Resume restarts the timer and effects from where they froze.
func (m *Mode) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePaused && m.phase != PhaseBuzzed {
		return
	}
	m.resumeLocked()
}

func (m *Mode) resumeLocked() {
	m.phase = PhaseActive
	if m.timer != nil {
		m.timer.Resume()
	}
	if h := m.spec.hooks.resume; h != nil {
		h(m)
	}
}

// ConfirmCorrect resolves a buzz in the claimant's favor: points are
// computed from the frozen elapsed time and the round ends revealed.
func (m *Mode) ConfirmCorrect(playerName string) (domain.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimant == "" || m.claimant != playerName {
		return domain.RoundResult{}, domain.ErrNoClaimant
	}
	points := m.scoreLocked(true)
	res := domain.RoundResult{
		Success:       true,
		PlayerName:    playerName,
		Points:        points,
		CorrectAnswer: m.content.CorrectAnswer,
	}
	m.stopLocked()
	m.log.Info().Str("player", playerName).Int("points", points).Msg("confirm correct")
	return res, nil
}

// ConfirmWrong penalizes the claimant, clears the lock and resumes the round
// for the remaining players.
func (m *Mode) ConfirmWrong(playerName string) (domain.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimant == "" || m.claimant != playerName {
		return domain.RoundResult{}, domain.ErrNoClaimant
	}
	points := m.scoreLocked(false)
	m.claimant = ""
	m.resumeLocked()
	m.log.Info().Str("player", playerName).Int("points", points).Msg("confirm wrong")
	return domain.RoundResult{Success: false, PlayerName: playerName, Points: points}, nil
}

func (m *Mode) scoreLocked(correct bool) int {
	elapsedMs := (m.spec.durationSeconds - m.remaining) * 1000
	if score := m.spec.hooks.score; score != nil {
		return score(m, correct, elapsedMs)
	}
	return 0
}

// Stop forces the round to STOPPED and revealed, halting the timer and any
// variant effect and running the full-reveal hook.
func (m *Mode) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Mode) stopLocked() {
	m.gen++ // cancel scheduled work from this run
	m.phase = PhaseStopped
	m.revealed = true
	m.started = false
	if m.timer != nil {
		m.timer.Stop()
	}
	if h := m.spec.hooks.stop; h != nil {
		h(m)
	}
}

// Cleanup releases every timer and pending scheduled callback. Safe to call
// multiple times and from any phase.
func (m *Mode) Cleanup() {
	m.mu.Lock()
	m.gen++
	m.started = false
	if m.timer != nil {
		m.timer.Stop()
	}
	if h := m.spec.hooks.cleanup; h != nil {
		h(m)
	}
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
}

// CanBuzz reports whether a buzz would currently be accepted.
func (m *Mode) CanBuzz() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseActive && m.claimant == "" && !m.revealed
}

// Phase returns the current lifecycle phase.
func (m *Mode) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Remaining returns the seconds left on the round timer.
func (m *Mode) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// Claimant returns the player holding the buzz, or "".
func (m *Mode) Claimant() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimant
}

// Revealed reports whether the round has been revealed; revealed rounds
// accept no further input.
func (m *Mode) Revealed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revealed
}

// Snapshot is the immutable display projection of a round. External
// consumers re-render from the latest snapshot; they never observe field
// mutation directly.
type Snapshot struct {
	Type      domain.ModeType `json:"type"`
	Phase     string          `json:"phase"`
	Remaining int             `json:"remaining"`
	Claimant  string          `json:"claimant,omitempty"`
	Revealed  bool            `json:"revealed"`
	Display   map[string]any  `json:"display"`
}

// Project returns the current snapshot, including the variant-specific
// display data.
func (m *Mode) Project() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Type:      m.spec.typ,
		Phase:     m.phase.String(),
		Remaining: m.remaining,
		Claimant:  m.claimant,
		Revealed:  m.revealed,
	}
	if h := m.spec.hooks.project; h != nil {
		snap.Display = h(m)
	}
	return snap
}
