package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagemill/pagemill/internal/domain"
)

// QueryLogRepository persists answered questions for later inspection.
type QueryLogRepository struct {
	db dbtx
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{db: pool}
}

func (r *QueryLogRepository) Create(ctx context.Context, entry *domain.QueryLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO query_logs (id, query, provider, model, top_k, chunk_ids, answer, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Query, entry.Provider, entry.Model, entry.TopK, entry.ChunkIDs, entry.Answer, entry.DurationMs, entry.CreatedAt,
	)
	return err
}

func (r *QueryLogRepository) ListRecent(ctx context.Context, limit int) ([]*domain.QueryLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, query, provider, model, top_k, chunk_ids, answer, duration_ms, created_at
		 FROM query_logs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.QueryLog
	for rows.Next() {
		var e domain.QueryLog
		if err := rows.Scan(&e.ID, &e.Query, &e.Provider, &e.Model, &e.TopK, &e.ChunkIDs, &e.Answer, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
