package drain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/objectstore"
	"github.com/poiesic/manualflow/storage"
	"github.com/poiesic/manualflow/storage/postgres"
)

func setupDrainTest(t *testing.T) (*Processor, storage.Store, *core.Document) {
	t.Helper()

	store, err := postgres.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	objects, err := objectstore.NewStore(objectstore.NewMemoryClient(), objectstore.StoreConfig{
		Endpoint:       "http://localhost:9000",
		DocumentBucket: "manuals",
		ImageBucket:    "manual-images",
	})
	require.NoError(t, err)

	doc := &core.Document{
		Filename:    "manual.pdf",
		ContentHash: "hash-" + string(core.NewID()),
	}
	require.NoError(t, store.Documents().CreateDocument(context.Background(), doc))

	return New(store, objects), store, doc
}

func enqueue(t *testing.T, store storage.Store, docID core.ID, artifact core.ArtifactType, payload any) *core.QueueItem {
	t.Helper()

	var raw string
	switch p := payload.(type) {
	case string:
		raw = p
	default:
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = string(data)
	}

	item := &core.QueueItem{
		DocumentID:   docID,
		Stage:        core.StageStorage.String(),
		ArtifactType: artifact,
		Payload:      raw,
	}
	require.NoError(t, store.Queue().Enqueue(context.Background(), item))
	return item
}

func TestDrainEmptyQueue(t *testing.T) {
	processor, _, doc := setupDrainTest(t)

	result, err := processor.Drain(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SavedCount)
	assert.Empty(t, result.Errors)
}

func TestDrainPersistsEachArtifactType(t *testing.T) {
	processor, store, doc := setupDrainTest(t)
	ctx := context.Background()

	chunk := &core.Chunk{
		ID:         core.NewID(),
		DocumentID: doc.ID,
		ChunkIndex: 0,
		Content:    "replace the fuel filter",
	}
	_, err := store.Chunks().UpsertChunks(ctx, chunk)
	require.NoError(t, err)

	enqueue(t, store, doc.ID, core.ArtifactTypeLink, linkPayload{
		URL:      "https://example.com/parts",
		LinkType: "parts_catalog",
	})
	enqueue(t, store, doc.ID, core.ArtifactTypeVideo, videoPayload{
		URL:      "https://youtube.com/watch?v=abc",
		Title:    "filter replacement",
		Platform: "youtube",
	})
	enqueue(t, store, doc.ID, core.ArtifactTypeChunk, chunkPayload{
		ChunkIndex: 1,
		Content:    "torque to 25 Nm",
		ChunkType:  "procedure",
	})
	enqueue(t, store, doc.ID, core.ArtifactTypeEmbedding, embeddingPayload{
		SourceID:   string(chunk.ID),
		SourceType: "chunk",
		Vector:     []float32{0.1, 0.2, 0.3},
		ModelName:  "embeddinggemma",
	})
	enqueue(t, store, doc.ID, core.ArtifactTypeImage, imagePayload{
		Filename:   "fig1.png",
		DataBase64: base64.StdEncoding.EncodeToString([]byte("png bytes")),
		OCRText:    "fig 1",
	})

	result, err := processor.Drain(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, result.SavedCount)
	assert.Empty(t, result.Errors)

	links, err := store.Links().GetLinksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	videos, err := store.Videos().GetVideosByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, videos, 1)

	chunkCount, err := store.Chunks().CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), chunkCount)

	images, err := store.Images().GetImagesByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.NotEmpty(t, images[0].StoragePath)
	assert.Equal(t, "fig 1", images[0].OCRText)

	embCount, err := store.Embeddings().CountEmbeddingsForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), embCount)

	// Everything was consumed
	pending, err := store.Queue().PendingItems(ctx, doc.ID, core.StageStorage)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainMalformedPayloadIsIsolated(t *testing.T) {
	processor, store, doc := setupDrainTest(t)
	ctx := context.Background()

	bad := enqueue(t, store, doc.ID, core.ArtifactTypeChunk, "{not json")
	enqueue(t, store, doc.ID, core.ArtifactTypeLink, linkPayload{URL: "https://example.com/ok"})

	result, err := processor.Drain(ctx, doc.ID)
	require.NoError(t, err)

	// The valid link saved, the malformed chunk recorded one error
	assert.Equal(t, 1, result.SavedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, bad.ID, result.Errors[0].ItemID)
	assert.Equal(t, core.ArtifactTypeChunk, result.Errors[0].ArtifactType)

	// The malformed item left the pending set
	pending, err := store.Queue().PendingItems(ctx, doc.ID, core.StageStorage)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainEmptyPayloadIsValid(t *testing.T) {
	processor, store, doc := setupDrainTest(t)

	// Parses fine but carries nothing: consumed without saving or erroring
	enqueue(t, store, doc.ID, core.ArtifactTypeLink, linkPayload{})

	result, err := processor.Drain(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SavedCount)
	assert.Empty(t, result.Errors)
}

func TestDrainDuplicateImageFiltered(t *testing.T) {
	processor, store, doc := setupDrainTest(t)
	ctx := context.Background()

	payload := imagePayload{
		Filename:   "fig1.png",
		DataBase64: base64.StdEncoding.EncodeToString([]byte("same pixels")),
	}
	enqueue(t, store, doc.ID, core.ArtifactTypeImage, payload)
	payload.Filename = "fig1-copy.png"
	enqueue(t, store, doc.ID, core.ArtifactTypeImage, payload)

	result, err := processor.Drain(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	assert.Empty(t, result.Errors)

	images, err := store.Images().GetImagesByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestDrainEmbeddingDuplicateSkipped(t *testing.T) {
	processor, store, doc := setupDrainTest(t)
	ctx := context.Background()

	chunk := &core.Chunk{
		ID:         core.NewID(),
		DocumentID: doc.ID,
		ChunkIndex: 0,
		Content:    "content",
	}
	_, err := store.Chunks().UpsertChunks(ctx, chunk)
	require.NoError(t, err)

	payload := embeddingPayload{
		SourceID:   string(chunk.ID),
		SourceType: "chunk",
		Vector:     []float32{0.5, 0.5},
		ModelName:  "embeddinggemma",
	}
	enqueue(t, store, doc.ID, core.ArtifactTypeEmbedding, payload)
	enqueue(t, store, doc.ID, core.ArtifactTypeEmbedding, payload)

	result, err := processor.Drain(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	assert.Empty(t, result.Errors)

	count, err := store.Embeddings().CountEmbeddingsForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
