package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"pubgame-service/internal/domain"
	"pubgame-service/internal/infra/memory"
)

type countingLoader struct {
	inner ContentLoader
	calls int
}

func (l *countingLoader) LoadContent(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error) {
	l.calls++
	return l.inner.LoadContent(ctx, category, typ, difficulty)
}

func TestContentRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{inner: memory.NewStaticContentLoader(map[string]domain.RoundContent{
		memory.StaticKey("movies", domain.ModeTrueFalse, "hard"): {
			Type:          domain.ModeTrueFalse,
			Question:      "Jaws was released in 1975.",
			Options:       []string{"True", "False"},
			CorrectAnswer: "True",
		},
	})}
	repo := NewContentRepository(newClient(mr), loader, time.Minute)

	ctx := context.Background()
	first, err := repo.GenerateRound(ctx, "movies", domain.ModeTrueFalse, "hard")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected one loader call, got %d", loader.calls)
	}

	second, err := repo.GenerateRound(ctx, "movies", domain.ModeTrueFalse, "hard")
	if err != nil {
		t.Fatalf("generate from cache: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected a cache hit, loader calls=%d", loader.calls)
	}
	if second.Question != first.Question || second.CorrectAnswer != first.CorrectAnswer {
		t.Fatalf("cache returned different content: %+v vs %+v", first, second)
	}
}

func TestContentRepositoryReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{inner: memory.NewStaticContentLoader(map[string]domain.RoundContent{
		memory.StaticKey("movies", domain.ModeTrueFalse, ""): {
			Type:          domain.ModeTrueFalse,
			Options:       []string{"True", "False"},
			CorrectAnswer: "False",
		},
	})}
	repo := NewContentRepository(newClient(mr), loader, time.Minute)

	ctx := context.Background()
	if _, err := repo.GenerateRound(ctx, "movies", domain.ModeTrueFalse, ""); err != nil {
		t.Fatalf("generate: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.GenerateRound(ctx, "movies", domain.ModeTrueFalse, ""); err != nil {
		t.Fatalf("generate after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected a reload after expiry, got %d calls", loader.calls)
	}
}

func TestContentRepositoryPropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewContentRepository(newClient(mr), memory.NewStaticContentLoader(nil), time.Minute)
	if _, err := repo.GenerateRound(context.Background(), "sports", domain.ModeChrono, ""); err != domain.ErrContentNotFound {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}
