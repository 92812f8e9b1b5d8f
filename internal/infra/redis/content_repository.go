package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pubgame-service/internal/domain"
)

// ContentLoader fetches round content from a backing store on cache miss.
type ContentLoader interface {
	LoadContent(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error)
}

// ContentRepository caches round content in Redis so several game hosts
// sharing one Redis reuse generated rounds:
// SET round:{type}:{category}:{difficulty} {content json} EX ttl
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GenerateRound(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error) {
	key := r.key(category, typ, difficulty)

	if content, ok := r.fromCache(ctx, key); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.fromCache(ctx, key); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, category, typ, difficulty)
		if err != nil {
			return domain.RoundContent{}, err
		}

		data, err := json.Marshal(content)
		if err != nil {
			return domain.RoundContent{}, fmt.Errorf("marshal round content: %w", err)
		}
		// best-effort cache fill
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return content, nil
	})
	if err != nil {
		return domain.RoundContent{}, err
	}
	return result.(domain.RoundContent), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, key string) (domain.RoundContent, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.RoundContent{}, false
	}
	content, err := domain.DecodeRoundContent(raw)
	if err != nil {
		return domain.RoundContent{}, false
	}
	return content, true
}

func (r *ContentRepository) key(category string, typ domain.ModeType, difficulty string) string {
	return "round:" + string(typ) + ":" + category + ":" + difficulty
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
