package engine

import (
	"math"

	"pubgame-service/internal/domain"
)

const imageBlurStart = 40.0

// IMAGE_BLUR: buzzer race on a progressively sharpening image. The blur
// level is a pure projection of the remaining time, so it freezes whenever
// the timer freezes and drops to zero on reveal.
func imageBlurSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeImageBlur,
		durationSeconds: 30,
		readingDelay:    defaultReadingDelay,
		requiresBuzz:    true,
		requiresReveal:  false,
		hooks: hooks{
			score: func(m *Mode, correct bool, elapsedMs int) int {
				if !correct {
					return -500
				}
				timeBonus := decayRatio(elapsedMs, m.spec.durationSeconds*1000)
				return int(math.Round(1000 * (1 + timeBonus)))
			},
			project: func(m *Mode) map[string]any {
				return map[string]any{
					"imageUrl":      m.content.MediaURL,
					"blurAmount":    blurAmount(m),
					"buzzedPlayer":  m.claimant,
					"correctAnswer": revealedAnswer(m),
				}
			},
		},
	}
}

func blurAmount(m *Mode) float64 {
	if m.revealed {
		return 0
	}
	if m.phase != PhaseActive && m.phase != PhasePaused && m.phase != PhaseBuzzed {
		return imageBlurStart
	}
	return imageBlurStart * float64(m.remaining) / float64(m.spec.durationSeconds)
}
