package engine

import (
	"math"

	"pubgame-service/internal/domain"
)

// QUIZ: buzzer race over a multiple-choice question. Correct decays from
// +1000 to 0, wrong from -500 to 0.
func quizSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeQuiz,
		durationSeconds: 10,
		readingDelay:    defaultReadingDelay,
		requiresBuzz:    true,
		requiresReveal:  true,
		hooks: hooks{
			score: func(m *Mode, correct bool, elapsedMs int) int {
				r := decayRatio(elapsedMs, m.spec.durationSeconds*1000)
				if correct {
					return int(math.Round(1000 * r))
				}
				return int(math.Round(-500 * r))
			},
			project: func(m *Mode) map[string]any {
				return map[string]any{
					"question":      m.content.Question,
					"options":       m.content.Options,
					"buzzedPlayer":  m.claimant,
					"correctAnswer": revealedAnswer(m),
				}
			},
		},
	}
}

// revealedAnswer hides the correct answer until the round is revealed.
func revealedAnswer(m *Mode) string {
	if m.revealed {
		return m.content.CorrectAnswer
	}
	return ""
}
