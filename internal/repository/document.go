package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/pagination"
	"github.com/pagemill/pagemill/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, source_path, filename, sha256, pages, chunk_count, status, storage_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.SourcePath, d.Filename, d.SHA256, d.Pages, d.ChunkCount, d.Status, nullableString(d.StorageKey), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source_path, filename, sha256, pages, chunk_count, status, storage_key, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	return scanDocument(row)
}

// GetBySHA256 finds a previously ingested document with identical content.
func (r *DocumentRepository) GetBySHA256(ctx context.Context, sha256 string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source_path, filename, sha256, pages, chunk_count, status, storage_key, created_at, updated_at
		 FROM documents WHERE sha256 = $1`,
		sha256,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, source_path, filename, sha256, pages, chunk_count, status, storage_key, created_at, updated_at
			 FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, source_path, filename, sha256, pages, chunk_count, status, storage_key, created_at, updated_at
			 FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.DocumentPageResult{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	d.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET source_path = $1, filename = $2, pages = $3, chunk_count = $4, status = $5, storage_key = $6, updated_at = $7
		 WHERE id = $8`,
		d.SourcePath, d.Filename, d.Pages, d.ChunkCount, d.Status, nullableString(d.StorageKey), d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var storageKey *string
	err := row.Scan(&d.ID, &d.SourcePath, &d.Filename, &d.SHA256, &d.Pages, &d.ChunkCount, &d.Status, &storageKey, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if storageKey != nil {
		d.StorageKey = *storageKey
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		var d domain.Document
		var storageKey *string
		if err := rows.Scan(&d.ID, &d.SourcePath, &d.Filename, &d.SHA256, &d.Pages, &d.ChunkCount, &d.Status, &storageKey, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if storageKey != nil {
			d.StorageKey = *storageKey
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}
