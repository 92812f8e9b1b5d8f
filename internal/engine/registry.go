package engine

import (
	"time"

	"pubgame-service/internal/domain"
)

const (
	defaultReadingDelay = 10 * time.Second
	musicReadingDelay   = 5 * time.Second
)

// variantFor returns the closed per-type configuration. The registry is the
// single dispatch point: one entry per ModeType, no inheritance.
func variantFor(t domain.ModeType) (variantSpec, bool) {
	switch t {
	case domain.ModeQuiz:
		return quizSpec(), true
	case domain.ModeTrueFalse:
		return trueFalseSpec(), true
	case domain.ModeChrono:
		return chronoSpec(), true
	case domain.ModeImageBlur:
		return imageBlurSpec(), true
	case domain.ModeWheelOfFortune:
		return wheelSpec(), true
	case domain.ModeRoulette:
		return rouletteSpec(), true
	case domain.ModeMusic:
		return musicSpec(), true
	}
	return variantSpec{}, false
}

// decayRatio is the shared linear time-decay: 1 for an instant answer, 0 at
// the timeout boundary.
func decayRatio(elapsedMs, maxTimeMs int) float64 {
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > maxTimeMs {
		elapsedMs = maxTimeMs
	}
	return float64(maxTimeMs-elapsedMs) / float64(maxTimeMs)
}
