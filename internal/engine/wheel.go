package engine

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"pubgame-service/internal/domain"
)

const (
	wheelInitialRevealDelay = time.Second
	wheelRevealInterval     = 10 * time.Second
)

type wheelState struct {
	revealed  map[rune]bool
	revealGen int // bumped on pause/buzz so pending reveals are dropped
	rng       *rand.Rand
}

// WHEEL_OF_FORTUNE: buzzer race on a hidden phrase. One letter is revealed
// ~1s after the go-signal and then every 10s, rarest remaining letter first
// so the phrase stays hidden longer.
func wheelSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeWheelOfFortune,
		durationSeconds: 120,
		readingDelay:    defaultReadingDelay,
		requiresBuzz:    true,
		requiresReveal:  false,
		hooks: hooks{
			init: func(m *Mode) {
				m.state = &wheelState{
					revealed: make(map[rune]bool),
					rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
				}
			},
			active: func(m *Mode) {
				ws := m.state.(*wheelState)
				ws.revealGen++
				wheelScheduleReveal(m, m.gen, ws.revealGen, wheelInitialRevealDelay)
			},
			pause: func(m *Mode) {
				m.state.(*wheelState).revealGen++
			},
			buzz: func(m *Mode, _ string) {
				m.state.(*wheelState).revealGen++
			},
			resume: func(m *Mode) {
				ws := m.state.(*wheelState)
				ws.revealGen++
				wheelScheduleReveal(m, m.gen, ws.revealGen, wheelRevealInterval)
			},
			stop: func(m *Mode) {
				ws := m.state.(*wheelState)
				for _, ch := range wheelPhrase(m) {
					if ch != ' ' {
						ws.revealed[ch] = true
					}
				}
			},
			score: func(m *Mode, correct bool, elapsedMs int) int {
				r := decayRatio(elapsedMs, m.spec.durationSeconds*1000)
				if correct {
					return int(math.Round(1000 * r))
				}
				return int(math.Round(-1000 * r))
			},
			project: wheelProject,
		},
	}
}

func wheelPhrase(m *Mode) string {
	phrase := m.content.Phrase
	if phrase == "" {
		phrase = m.content.CorrectAnswer
	}
	return strings.ToUpper(phrase)
}

func wheelScheduleReveal(m *Mode, gen, revealGen int, d time.Duration) {
	m.schedule(gen, d, func() func() {
		ws := m.state.(*wheelState)
		if ws.revealGen != revealGen {
			return nil
		}
		if next, ok := wheelPickRarest(m, ws); ok {
			ws.revealed[next] = true
			wheelScheduleReveal(m, gen, revealGen, wheelRevealInterval)
		}
		return nil
	})
}

// wheelPickRarest picks the unrevealed letter with the fewest occurrences in
// the phrase; ties break randomly. Returns false when nothing is left.
func wheelPickRarest(m *Mode, ws *wheelState) (rune, bool) {
	counts := make(map[rune]int)
	for _, ch := range wheelPhrase(m) {
		if ch == ' ' {
			continue
		}
		counts[ch]++
	}

	minCount := -1
	var candidates []rune
	for ch, c := range counts {
		if ws.revealed[ch] {
			continue
		}
		switch {
		case minCount == -1 || c < minCount:
			minCount = c
			candidates = candidates[:0]
			candidates = append(candidates, ch)
		case c == minCount:
			candidates = append(candidates, ch)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[ws.rng.Intn(len(candidates))], true
}

func wheelProject(m *Mode) map[string]any {
	ws := m.state.(*wheelState)
	phrase := wheelPhrase(m)

	words := make([][]string, 0)
	for _, word := range strings.Fields(phrase) {
		chars := make([]string, 0, len(word))
		for _, ch := range word {
			if ws.revealed[ch] {
				chars = append(chars, string(ch))
			} else {
				chars = append(chars, "_")
			}
		}
		words = append(words, chars)
	}

	return map[string]any{
		"hint":          m.content.Hint,
		"displayWords":  words,
		"revealedCount": len(ws.revealed),
		"totalLetters":  len(letterSet(phrase)),
		"buzzedPlayer":  m.claimant,
	}
}

func letterSet(phrase string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, ch := range phrase {
		if ch != ' ' {
			set[ch] = struct{}{}
		}
	}
	return set
}
