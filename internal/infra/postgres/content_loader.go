package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pubgame-service/internal/domain"
)

// ContentLoader picks round content JSONB out of Postgres. Rows are keyed
// by mode type and category; an empty difficulty matches any row.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadContent(ctx context.Context, category string, typ domain.ModeType, difficulty string) (domain.RoundContent, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `
		SELECT content FROM rounds
		WHERE type = $1 AND category = $2 AND ($3 = '' OR difficulty = $3)
		ORDER BY random() LIMIT 1`,
		string(typ), category, difficulty,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoundContent{}, domain.ErrContentNotFound
	}
	if err != nil {
		return domain.RoundContent{}, fmt.Errorf("load round content: %w", err)
	}
	return domain.DecodeRoundContent(raw)
}
