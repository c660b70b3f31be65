package pipeline

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"github.com/poiesic/manualflow/storage/postgres"
)

func setupTrackerTest(t *testing.T) (storage.Store, *StatusTracker, *core.Document) {
	t.Helper()

	store, err := postgres.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	doc := &core.Document{Filename: "m.pdf", ContentHash: "tracker-hash"}
	require.NoError(t, store.Documents().CreateDocument(context.Background(), doc))

	return store, NewStatusTracker(store), doc
}

func TestStatusOfFreshDocument(t *testing.T) {
	_, tracker, doc := setupTrackerTest(t)

	status, err := tracker.StatusOf(context.Background(), doc.ID)
	require.NoError(t, err)

	// Upload is implied by the row existing; everything else is missing
	assert.True(t, status[core.StageUpload])
	for _, stage := range core.AllStages()[1:] {
		assert.False(t, status[stage], "stage %s should be incomplete", stage)
	}
}

func TestStatusOfMergesPersistedMap(t *testing.T) {
	store, tracker, doc := setupTrackerTest(t)
	ctx := context.Background()

	require.NoError(t, store.Documents().SetStageComplete(ctx, doc.ID, core.StageLinkExtraction, true))

	status, err := tracker.StatusOf(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, status[core.StageLinkExtraction])
}

func TestStatusOfDerivesFromArtifacts(t *testing.T) {
	store, tracker, doc := setupTrackerTest(t)
	ctx := context.Background()

	// The persisted map stays empty; artifact presence alone must be enough
	_, err := store.Chunks().UpsertChunks(ctx, &core.Chunk{
		ID:         core.NewID(),
		DocumentID: doc.ID,
		ChunkIndex: 0,
		Content:    "check oil level",
	})
	require.NoError(t, err)

	_, _, err = store.Images().CreateImage(ctx, &core.Image{
		DocumentID:  doc.ID,
		ContentHash: "img-hash",
	})
	require.NoError(t, err)

	doc.Manufacturer = "Kubota"
	doc.DocType = "service_manual"
	require.NoError(t, store.Documents().UpdateDocument(ctx, doc))

	status, err := tracker.StatusOf(ctx, doc.ID)
	require.NoError(t, err)

	assert.True(t, status[core.StageTextExtraction], "chunks imply text extraction")
	assert.True(t, status[core.StageChunkPreprocessing], "chunks imply preprocessing")
	assert.True(t, status[core.StageImageProcessing], "images imply image processing")
	assert.True(t, status[core.StageStorage], "images imply storage")
	assert.True(t, status[core.StageClassification], "classification fields imply classification")
	assert.False(t, status[core.StageEmbedding])
	assert.False(t, status[core.StageLinkExtraction])
}

func TestStatusOfDerivesFromEmbeddings(t *testing.T) {
	store, tracker, doc := setupTrackerTest(t)
	ctx := context.Background()

	chunks, err := store.Chunks().UpsertChunks(ctx, &core.Chunk{
		ID:         core.NewID(),
		DocumentID: doc.ID,
		ChunkIndex: 0,
		Content:    "content",
	})
	require.NoError(t, err)

	require.NoError(t, store.Embeddings().CreateEmbedding(ctx, &core.Embedding{
		SourceID:   chunks[0].ID,
		SourceType: core.SourceTypeChunk,
		Vector:     pgvector.NewVector([]float32{0.1, 0.2}),
		ModelName:  "embeddinggemma",
	}))

	status, err := tracker.StatusOf(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, status[core.StageEmbedding])
	assert.True(t, status[core.StageSearchIndexing])
}

func TestMissingStagesExcludesDisabled(t *testing.T) {
	_, tracker, doc := setupTrackerTest(t)

	registry := NewRegistry()
	registry.Disable(core.StageSVGProcessing)

	missing, err := tracker.MissingStages(context.Background(), doc.ID, registry)
	require.NoError(t, err)

	assert.NotContains(t, missing, core.StageUpload)
	assert.NotContains(t, missing, core.StageSVGProcessing)
	assert.Len(t, missing, 13)

	// Order follows the fixed sequence
	assert.Equal(t, core.StageTextExtraction, missing[0])
	assert.Equal(t, core.StageSearchIndexing, missing[len(missing)-1])
}
