package bus

import (
	"context"

	"pubgame-service/internal/domain"
)

// Channel is the bidirectional game transport: a status topic fanning out
// from the host to every remote, and an answer topic funneling from the
// remotes to the host. Both are scoped by game id. Delivery is best-effort
// at-least-once, in publish order per topic; there is no ordering across
// the two topics.
type Channel interface {
	PublishStatus(ctx context.Context, gameID string, evt domain.StatusEvent) error
	PublishAnswer(ctx context.Context, gameID string, ans domain.PlayerAnswer) error

	// SubscribeStatus/SubscribeAnswer return a receive channel and a cancel
	// func the caller must invoke to avoid leaks.
	SubscribeStatus(ctx context.Context, gameID string) (<-chan domain.StatusEvent, func(), error)
	SubscribeAnswer(ctx context.Context, gameID string) (<-chan domain.PlayerAnswer, func(), error)
}
