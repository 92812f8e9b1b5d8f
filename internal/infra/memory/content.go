package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pubgame-service/internal/domain"
)

// ContentLoader fetches round content from a backing store (Postgres, a
// generator service, a fixture file).
type ContentLoader interface {
	LoadContent(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error)
}

// ContentRepository caches round content with a TTL so back-to-back rounds
// of the same kind do not hammer the loader. Concurrent misses for the same
// key are coalesced.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.RoundContent
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func contentKey(category string, typ domain.ModeType, difficulty string) string {
	return category + "|" + string(typ) + "|" + difficulty
}

func (r *ContentRepository) GenerateRound(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error) {
	key := contentKey(category, typ, difficulty)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.loader.LoadContent(ctx, category, typ, difficulty)
		if err != nil {
			return domain.RoundContent{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedContent{
			content:   content,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.RoundContent{}, err
	}
	return result.(domain.RoundContent), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader serves fixture content from an in-memory map, keyed
// the same way the repository caches. Useful for tests and demos.
type StaticContentLoader struct {
	contents map[string]domain.RoundContent
}

func NewStaticContentLoader(contents map[string]domain.RoundContent) *StaticContentLoader {
	return &StaticContentLoader{contents: contents}
}

// StaticKey builds the lookup key for seeding a StaticContentLoader.
func StaticKey(category string, typ domain.ModeType, difficulty string) string {
	return contentKey(category, typ, difficulty)
}

func (l *StaticContentLoader) LoadContent(_ context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error) {
	if content, ok := l.contents[contentKey(category, typ, difficulty)]; ok {
		return content, nil
	}
	return domain.RoundContent{}, domain.ErrContentNotFound
}
