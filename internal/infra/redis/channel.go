package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pubgame-service/internal/domain"
)

const channelBuffer = 64

// Channel is the Redis Pub/Sub implementation of bus.Channel. Redis
// delivers per-channel messages in publish order to every live subscriber,
// which is exactly the per-topic guarantee the game protocol needs; it does
// not replay for late joiners, which is why status events are full
// snapshots.
type Channel struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewChannel(client *redis.Client, log zerolog.Logger) *Channel {
	return &Channel{client: client, log: log.With().Str("component", "redis_channel").Logger()}
}

func statusKey(gameID string) string { return "game:" + gameID + ":status" }
func answerKey(gameID string) string { return "game:" + gameID + ":answer" }

func (c *Channel) PublishStatus(ctx context.Context, gameID string, evt domain.StatusEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	if err := c.client.Publish(ctx, statusKey(gameID), data).Err(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

func (c *Channel) PublishAnswer(ctx context.Context, gameID string, ans domain.PlayerAnswer) error {
	data, err := json.Marshal(ans)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	if err := c.client.Publish(ctx, answerKey(gameID), data).Err(); err != nil {
		return fmt.Errorf("publish answer: %w", err)
	}
	return nil
}

func (c *Channel) SubscribeStatus(ctx context.Context, gameID string) (<-chan domain.StatusEvent, func(), error) {
	ps := c.client.Subscribe(ctx, statusKey(gameID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe status: %w", err)
	}

	out := make(chan domain.StatusEvent, channelBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var evt domain.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				c.log.Warn().Err(err).Str("game_id", gameID).Msg("dropping malformed status message")
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}

func (c *Channel) SubscribeAnswer(ctx context.Context, gameID string) (<-chan domain.PlayerAnswer, func(), error) {
	ps := c.client.Subscribe(ctx, answerKey(gameID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe answer: %w", err)
	}

	out := make(chan domain.PlayerAnswer, channelBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ans domain.PlayerAnswer
			if err := json.Unmarshal([]byte(msg.Payload), &ans); err != nil {
				c.log.Warn().Err(err).Str("game_id", gameID).Msg("dropping malformed answer message")
				continue
			}
			select {
			case out <- ans:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}
