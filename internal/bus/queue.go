package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"pubgame-service/internal/domain"
)

type pendingKind int

const (
	pendingStatus pendingKind = iota
	pendingAnswer
)

type pending struct {
	kind   pendingKind
	gameID string
	status domain.StatusEvent
	answer domain.PlayerAnswer
}

// Queued wraps a Channel with an explicit connection state. Publishes made
// while disconnected are held in order and flushed on the next
// SetConnected(true); they are never dropped. Subscriptions pass through
// untouched.
type Queued struct {
	inner Channel
	log   zerolog.Logger

	mu        sync.Mutex
	connected bool
	backlog   []pending
}

func NewQueued(inner Channel, log zerolog.Logger) *Queued {
	return &Queued{inner: inner, log: log.With().Str("component", "bus").Logger()}
}

// SetConnected flips the connection state. Turning it on flushes the
// backlog in publish order before any later publish goes through.
func (q *Queued) SetConnected(ctx context.Context, up bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.connected = up
	if !up || len(q.backlog) == 0 {
		return nil
	}

	q.log.Info().Int("queued", len(q.backlog)).Msg("flushing backlog")
	for i, p := range q.backlog {
		var err error
		switch p.kind {
		case pendingStatus:
			err = q.inner.PublishStatus(ctx, p.gameID, p.status)
		case pendingAnswer:
			err = q.inner.PublishAnswer(ctx, p.gameID, p.answer)
		}
		if err != nil {
			// keep what did not make it out
			q.backlog = q.backlog[i:]
			q.connected = false
			return err
		}
	}
	q.backlog = nil
	return nil
}

func (q *Queued) Connected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.connected
}

func (q *Queued) PublishStatus(ctx context.Context, gameID string, evt domain.StatusEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.connected {
		q.backlog = append(q.backlog, pending{kind: pendingStatus, gameID: gameID, status: evt})
		q.log.Debug().Str("game_id", gameID).Str("action", string(evt.Action)).Msg("queued status publish")
		return nil
	}
	return q.inner.PublishStatus(ctx, gameID, evt)
}

func (q *Queued) PublishAnswer(ctx context.Context, gameID string, ans domain.PlayerAnswer) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.connected {
		q.backlog = append(q.backlog, pending{kind: pendingAnswer, gameID: gameID, answer: ans})
		q.log.Debug().Str("game_id", gameID).Str("player", ans.PlayerName).Msg("queued answer publish")
		return nil
	}
	return q.inner.PublishAnswer(ctx, gameID, ans)
}

func (q *Queued) SubscribeStatus(ctx context.Context, gameID string) (<-chan domain.StatusEvent, func(), error) {
	return q.inner.SubscribeStatus(ctx, gameID)
}

func (q *Queued) SubscribeAnswer(ctx context.Context, gameID string) (<-chan domain.PlayerAnswer, func(), error) {
	return q.inner.SubscribeAnswer(ctx, gameID)
}
