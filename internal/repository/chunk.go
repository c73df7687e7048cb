package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/pagemill/pagemill/internal/domain"
)

// ChunkRepository handles persistence of document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
// Chunks without an embedding are stored with a NULL vector so the index
// worker can fill them in later.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var embedding any
		if c.Embedding != nil {
			embedding = pgvector.NewVector(c.Embedding)
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, source_path, page, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.DocumentID, c.SourcePath, c.Page, c.ChunkIndex, c.Content, embedding, createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, source_path, page, chunk_index, content, embedding, created_at
		 FROM chunks WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.DocumentID, &c.SourcePath, &c.Page, &c.ChunkIndex, &c.Content, &embedding, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}

// UpdateEmbedding stores the vector for a chunk whose embedding was deferred.
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// SearchByEmbedding returns the closest chunks to the given vector by cosine
// distance, scored as 1/(1+distance).
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 4
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, source_path, page, chunk_index, content,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ScoredChunk
	for rows.Next() {
		var c domain.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SourcePath, &c.Page, &c.ChunkIndex, &c.Content, &score); err != nil {
			return nil, err
		}
		results = append(results, &domain.ScoredChunk{Chunk: &c, Score: score})
	}
	return results, rows.Err()
}

// CountMissingEmbeddings returns how many chunks of a document still have no
// vector. Zero means the document is fully indexed.
func (r *ChunkRepository) CountMissingEmbeddings(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = $1 AND embedding IS NULL`,
		documentID,
	).Scan(&count)
	return count, err
}

// CountByDocument returns the number of stored chunks for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}
