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

// testVector builds an embedding with a single non-zero axis so cosine
// distances between fixtures are predictable.
func testVector(axis int) []float32 {
	v := make([]float32, 3072)
	v[axis] = 1
	return v
}

func newTestChunk(documentID string, index int, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		SourcePath: "/data/pdfs/report.pdf",
		Page:       1,
		ChunkIndex: index,
		Content:    "chunk content " + uuid.NewString(),
		Embedding:  embedding,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestChunkRepository_ReplaceChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument("chunks")
	require.NoError(t, docRepo.Create(ctx, doc))

	first := []domain.Chunk{
		newTestChunk(doc.ID, 0, testVector(0)),
		newTestChunk(doc.ID, 1, testVector(1)),
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, first))

	count, err := chunkRepo.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A second replace drops the previous set
	second := []domain.Chunk{newTestChunk(doc.ID, 0, testVector(2))}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, second))

	count, err = chunkRepo.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = chunkRepo.GetByID(ctx, first[0].ID)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument("get")
	require.NoError(t, docRepo.Create(ctx, doc))

	c := newTestChunk(doc.ID, 0, testVector(0))
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.Chunk{c}))

	retrieved, err := chunkRepo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Content, retrieved.Content)
	assert.Equal(t, c.Page, retrieved.Page)
	assert.Equal(t, c.ChunkIndex, retrieved.ChunkIndex)
	assert.Len(t, retrieved.Embedding, 3072)
}

func TestChunkRepository_NullEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument("null")
	require.NoError(t, docRepo.Create(ctx, doc))

	pending := newTestChunk(doc.ID, 0, nil)
	embedded := newTestChunk(doc.ID, 1, testVector(0))
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.Chunk{pending, embedded}))

	retrieved, err := chunkRepo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.Embedding)

	missing, err := chunkRepo.CountMissingEmbeddings(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, missing)

	require.NoError(t, chunkRepo.UpdateEmbedding(ctx, pending.ID, testVector(5)))

	missing, err = chunkRepo.CountMissingEmbeddings(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, missing)
}

func TestChunkRepository_SearchByEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument("search")
	require.NoError(t, docRepo.Create(ctx, doc))

	exact := newTestChunk(doc.ID, 0, testVector(0))
	orthogonal := newTestChunk(doc.ID, 1, testVector(1))
	unembedded := newTestChunk(doc.ID, 2, nil)
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.Chunk{exact, orthogonal, unembedded}))

	results, err := chunkRepo.SearchByEmbedding(ctx, testVector(0), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, exact.ID, results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	assert.Equal(t, orthogonal.ID, results[1].Chunk.ID)
	assert.InDelta(t, 0.5, results[1].Score, 0.001)

	limited, err := chunkRepo.SearchByEmbedding(ctx, testVector(0), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
