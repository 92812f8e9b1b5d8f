package engine

import (
	"context"
	"sort"
	"time"

	"pubgame-service/internal/domain"
)

const (
	rouletteCountdownFrom = 5
	rouletteGoFlash       = 1500 * time.Millisecond
	rouletteSpinDuration  = 12 * time.Second
)

type rouletteState struct {
	votes     map[string]string
	countdown int
	showGo    bool
	spinning  bool
}

// ROULETTE: everyone bets on a wheel segment within a short window, then the
// host display runs a scripted reveal (countdown, go flash, wheel spin)
// before the result lands. There is no reading hold; voting opens
// immediately.
func rouletteSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeRoulette,
		durationSeconds: 10,
		readingDelay:    0,
		requiresBuzz:    false,
		requiresReveal:  false,
		hooks: hooks{
			init: func(m *Mode) {
				m.state = &rouletteState{votes: make(map[string]string)}
			},
			start: func(m *Mode, _ context.Context, gen int) error {
				m.activate(gen)
				return nil
			},
			timeout: rouletteReveal,
			validate: func(m *Mode, playerName string, value, _ int) domain.AnswerOutcome {
				if value < 0 || value >= len(m.content.Options) {
					return domain.AnswerOutcome{}
				}
				rs := m.state.(*rouletteState)
				choice := m.content.Options[value]
				rs.votes[playerName] = choice
				correct := choice == m.content.CorrectAnswer
				points := 0
				if correct {
					points = 1000
				}
				return domain.AnswerOutcome{Correct: correct, Points: points, Choice: choice}
			},
			project: func(m *Mode) map[string]any {
				rs := m.state.(*rouletteState)
				return map[string]any{
					"question":      m.content.Question,
					"options":       m.content.Options,
					"correctAnswer": m.content.CorrectAnswer, // the display script needs the target before the spin
					"voteCount":     len(rs.votes),
					"countdown":     rs.countdown,
					"showGo":        rs.showGo,
					"spinning":      rs.spinning,
				}
			},
		},
	}
}

// rouletteReveal replaces the default timeout with the scripted sequence:
// voting closes, 5..1 countdown, "GO" flash, wheel spin, then the round ends.
// Runs without the lock; every state change is gen-checked so cleanup mid
// script abandons it.
func rouletteReveal(m *Mode, gen int) {
	if !m.setPhase(gen, PhaseRevealed) {
		return
	}
	ctx := context.Background()

	for i := rouletteCountdownFrom; i >= 1; i-- {
		i := i
		if !m.mutate(gen, func() { m.state.(*rouletteState).countdown = i }) {
			return
		}
		if cb := m.cb.OnPreGameTick; cb != nil {
			cb(i)
		}
		if !m.sleep(ctx, time.Second) {
			return
		}
	}

	if !m.mutate(gen, func() {
		rs := m.state.(*rouletteState)
		rs.countdown = 0
		rs.showGo = true
	}) {
		return
	}
	if !m.sleep(ctx, rouletteGoFlash) {
		return
	}

	if !m.mutate(gen, func() {
		rs := m.state.(*rouletteState)
		rs.showGo = false
		rs.spinning = true
	}) {
		return
	}
	if !m.sleep(ctx, rouletteSpinDuration) {
		return
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state.(*rouletteState).spinning = false
	m.stopLocked()
	cb := m.cb.OnTimerEnd
	m.mu.Unlock()
	m.log.Info().Msg("roulette spin finished")
	if cb != nil {
		cb()
	}
}

// RouletteWinners lists the players whose recorded bet matched the winning
// segment, sorted by name. Nil for every other variant.
func (m *Mode) RouletteWinners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.state.(*rouletteState)
	if !ok {
		return nil
	}
	winners := make([]string, 0, len(rs.votes))
	for player, choice := range rs.votes {
		if choice == m.content.CorrectAnswer {
			winners = append(winners, player)
		}
	}
	sort.Strings(winners)
	return winners
}
