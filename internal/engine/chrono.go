package engine

import (
	"math"
	"strconv"

	"pubgame-service/internal/domain"
)

// CHRONO: simultaneous numeric year guess. Points scale with distance from
// the real year and answer speed; a guess within 2 years counts as correct.
func chronoSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeChrono,
		durationSeconds: 15,
		readingDelay:    defaultReadingDelay,
		requiresBuzz:    false,
		requiresReveal:  true,
		hooks: hooks{
			validate: func(m *Mode, _ string, value, elapsedMs int) domain.AnswerOutcome {
				realYear, err := strconv.Atoi(m.content.CorrectAnswer)
				if err != nil {
					// Unparsable content year: reject rather than guess.
					return domain.AnswerOutcome{}
				}
				distance := value - realYear
				if distance < 0 {
					distance = -distance
				}
				return domain.AnswerOutcome{
					Correct:  distance <= 2,
					Points:   chronoPoints(m, distance, elapsedMs),
					Choice:   strconv.Itoa(value),
					Distance: distance,
				}
			},
			project: func(m *Mode) map[string]any {
				hint := m.content.Hint
				if hint == "" {
					hint = "Pick the year on your phone"
				}
				return map[string]any{
					"question":      m.content.Question,
					"hint":          hint,
					"correctAnswer": revealedAnswer(m),
				}
			},
		},
	}
}

func chronoPoints(m *Mode, distance, elapsedMs int) int {
	if distance > 100 {
		return 0
	}
	base := float64(1000 - 10*distance)
	maxTimeMs := float64(m.spec.durationSeconds * 1000)
	speed := 1 - float64(elapsedMs)/(2*maxTimeMs)
	if speed < 0.5 {
		speed = 0.5
	}
	points := int(math.Round(base * speed))
	if points < 0 {
		points = 0
	}
	return points
}
