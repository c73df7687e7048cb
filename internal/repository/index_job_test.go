//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagemill/pagemill/internal/domain"
	"github.com/pagemill/pagemill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDocumentWithChunk(ctx context.Context, t *testing.T, docRepo *DocumentRepository, chunkRepo *ChunkRepository) (*domain.Document, domain.Chunk) {
	doc := newTestDocument("jobs")
	require.NoError(t, docRepo.Create(ctx, doc))

	c := newTestChunk(doc.ID, 0, nil)
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.Chunk{c}))

	return doc, c
}

func TestIndexJobRepository_Create(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	jobRepo := NewIndexJobRepository(pool)

	_, c := setupDocumentWithChunk(ctx, t, docRepo, chunkRepo)

	job := &domain.IndexJob{
		ID:        uuid.NewString(),
		ChunkID:   c.ID,
		Status:    domain.IndexJobStatusPending,
		Error:     "provider timeout",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ChunkID, retrieved.ChunkID)
	assert.Equal(t, domain.IndexJobStatusPending, retrieved.Status)
	assert.Equal(t, "provider timeout", retrieved.Error)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestIndexJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewIndexJobRepository(pool)

	_, err := jobRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrIndexJobNotFound)
}

func TestIndexJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	jobRepo := NewIndexJobRepository(pool)

	doc := newTestDocument("claim")
	require.NoError(t, docRepo.Create(ctx, doc))

	chunks := []domain.Chunk{
		newTestChunk(doc.ID, 0, nil),
		newTestChunk(doc.ID, 1, nil),
		newTestChunk(doc.ID, 2, nil),
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, chunks))

	pendingOld := &domain.IndexJob{ID: uuid.NewString(), ChunkID: chunks[0].ID, Status: domain.IndexJobStatusPending, CreatedAt: time.Now().UTC().Add(-time.Minute)}
	pendingNew := &domain.IndexJob{ID: uuid.NewString(), ChunkID: chunks[1].ID, Status: domain.IndexJobStatusPending, CreatedAt: time.Now().UTC()}
	completed := &domain.IndexJob{ID: uuid.NewString(), ChunkID: chunks[2].ID, Status: domain.IndexJobStatusCompleted, CreatedAt: time.Now().UTC()}
	require.NoError(t, jobRepo.Create(ctx, pendingOld))
	require.NoError(t, jobRepo.Create(ctx, pendingNew))
	require.NoError(t, jobRepo.Create(ctx, completed))

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Both pending jobs claimed, completed jobs untouched
	claimedIDs := map[string]bool{}
	for _, j := range claimed {
		claimedIDs[j.ID] = true
		assert.Equal(t, domain.IndexJobStatusProcessing, j.Status)
	}
	assert.True(t, claimedIDs[pendingOld.ID])
	assert.True(t, claimedIDs[pendingNew.ID])
	assert.False(t, claimedIDs[completed.ID])

	// Claimed jobs are no longer eligible
	again, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestIndexJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	jobRepo := NewIndexJobRepository(pool)

	_, c := setupDocumentWithChunk(ctx, t, docRepo, chunkRepo)

	job := &domain.IndexJob{ID: uuid.NewString(), ChunkID: c.ID, Status: domain.IndexJobStatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusCompleted, retrieved.Status)
	require.NotNil(t, retrieved.ProcessedAt)
	assert.WithinDuration(t, time.Now().UTC(), *retrieved.ProcessedAt, time.Minute)
}

func TestIndexJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	jobRepo := NewIndexJobRepository(pool)

	_, c := setupDocumentWithChunk(ctx, t, docRepo, chunkRepo)

	job := &domain.IndexJob{ID: uuid.NewString(), ChunkID: c.ID, Status: domain.IndexJobStatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), retrieved.Retries)
}
