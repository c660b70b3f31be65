package postgres

import (
	"context"
	"testing"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRepository_EnqueueAndDrainLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := &core.Document{Filename: "a.pdf", ContentHash: "queue"}
	require.NoError(t, store.Documents().CreateDocument(ctx, doc))

	items := []*core.QueueItem{
		{DocumentID: doc.ID, Stage: core.StageStorage.String(), ArtifactType: core.ArtifactTypeLink, Payload: `{"url":"https://example.com"}`},
		{DocumentID: doc.ID, Stage: core.StageStorage.String(), ArtifactType: core.ArtifactTypeChunk, Payload: `{"chunk_index":0}`},
	}
	require.NoError(t, store.Queue().Enqueue(ctx, items...))

	pending, err := store.Queue().PendingItems(ctx, doc.ID, core.StageStorage)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, store.Queue().MarkConsumed(ctx, pending[0].ID))
	require.NoError(t, store.Queue().MarkFailed(ctx, pending[1].ID, "bad payload"))

	pending, err = store.Queue().PendingItems(ctx, doc.ID, core.StageStorage)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueueRepository_MarkConsumedOnce(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := &core.Document{Filename: "a.pdf", ContentHash: "queue-once"}
	require.NoError(t, store.Documents().CreateDocument(ctx, doc))

	item := &core.QueueItem{DocumentID: doc.ID, Stage: core.StageStorage.String(), ArtifactType: core.ArtifactTypeVideo}
	require.NoError(t, store.Queue().Enqueue(ctx, item))

	require.NoError(t, store.Queue().MarkConsumed(ctx, item.ID))

	// The pending-status guard makes a second consume a no-op error.
	err := store.Queue().MarkConsumed(ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQueueRepository_EmptyQueueIsValid(t *testing.T) {
	store := setupTestStore(t)

	pending, err := store.Queue().PendingItems(context.Background(), core.NewID(), core.StageStorage)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueueRepository_StageScoped(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := &core.Document{Filename: "a.pdf", ContentHash: "queue-scope"}
	require.NoError(t, store.Documents().CreateDocument(ctx, doc))

	require.NoError(t, store.Queue().Enqueue(ctx,
		&core.QueueItem{DocumentID: doc.ID, Stage: core.StageStorage.String(), ArtifactType: core.ArtifactTypeLink},
		&core.QueueItem{DocumentID: doc.ID, Stage: core.StageEmbedding.String(), ArtifactType: core.ArtifactTypeEmbedding},
	))

	pending, err := store.Queue().PendingItems(ctx, doc.ID, core.StageStorage)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, core.ArtifactTypeLink, pending[0].ArtifactType)
}
