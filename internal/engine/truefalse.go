package engine

import (
	"math"

	"pubgame-service/internal/domain"
)

// TRUE_FALSE: everyone answers at once, reveal on timeout. Correct decays
// from +1000 to 0 and wrong from -1000 to 0, both speed-proportional.
func trueFalseSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeTrueFalse,
		durationSeconds: 8,
		readingDelay:    defaultReadingDelay,
		requiresBuzz:    false,
		requiresReveal:  true,
		hooks: hooks{
			validate: func(m *Mode, _ string, value, elapsedMs int) domain.AnswerOutcome {
				if value < 0 || value >= len(m.content.Options) {
					return domain.AnswerOutcome{}
				}
				choice := m.content.Options[value]
				correct := choice == m.content.CorrectAnswer
				return domain.AnswerOutcome{
					Correct: correct,
					Points:  trueFalsePoints(m, correct, elapsedMs),
					Choice:  choice,
				}
			},
			score: func(m *Mode, correct bool, elapsedMs int) int {
				return trueFalsePoints(m, correct, elapsedMs)
			},
			project: func(m *Mode) map[string]any {
				return map[string]any{
					"question":      m.content.Question,
					"options":       m.content.Options,
					"correctAnswer": revealedAnswer(m),
				}
			},
		},
	}
}

func trueFalsePoints(m *Mode, correct bool, elapsedMs int) int {
	r := decayRatio(elapsedMs, m.spec.durationSeconds*1000)
	if correct {
		return int(math.Round(1000 * r))
	}
	return int(math.Round(-1000 * r))
}
