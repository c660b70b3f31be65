package pipeline

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/objectstore"
	"github.com/poiesic/manualflow/storage"
	"github.com/poiesic/manualflow/storage/postgres"
)

// countingProcessor records invocations and optionally fails.
type countingProcessor struct {
	calls atomic.Int64
	err   error
}

func (p *countingProcessor) Process(ctx context.Context, doc *core.Document) error {
	p.calls.Add(1)
	return p.err
}

type testHarness struct {
	store      storage.Store
	objects    *objectstore.Store
	registry   *Registry
	processors map[core.Stage]*countingProcessor
}

func newHarness(t *testing.T) *testHarness {
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

	registry := NewRegistry()
	processors := make(map[core.Stage]*countingProcessor)
	for _, stage := range core.AllStages()[1:] {
		p := &countingProcessor{}
		processors[stage] = p
		registry.Register(stage, p)
	}

	return &testHarness{
		store:      store,
		objects:    objects,
		registry:   registry,
		processors: processors,
	}
}

func (h *testHarness) coordinator(opts ...CoordinatorOption) *Coordinator {
	return NewCoordinator(h.store, h.objects, h.registry, opts...)
}

func (h *testHarness) totalCalls() int64 {
	var total int64
	for _, p := range h.processors {
		total += p.calls.Load()
	}
	return total
}

func TestIngestNewDocument(t *testing.T) {
	h := newHarness(t)
	coord := h.coordinator()
	ctx := context.Background()

	result, err := coord.Ingest(ctx, "kubota_l3301_wsm.pdf", []byte("manual bytes"))
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, result.Status)
	assert.False(t, result.Resumed)
	assert.Len(t, result.CompletedStages, 14)
	assert.Empty(t, result.FailedStages)
	require.NotNil(t, result.Quality)

	// Every non-upload stage ran exactly once
	for stage, p := range h.processors {
		assert.Equal(t, int64(1), p.calls.Load(), "stage %s", stage)
	}

	// Persisted state reflects the run
	doc, err := h.store.Documents().GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, doc.ProcessingStatus)
	for _, stage := range core.AllStages() {
		assert.True(t, doc.StageStatus[stage.String()], "stage %s should be complete", stage)
	}
}

func TestIngestDuplicateIsNoOp(t *testing.T) {
	h := newHarness(t)
	coord := h.coordinator()
	ctx := context.Background()
	content := []byte("identical bytes")

	first, err := coord.Ingest(ctx, "manual.pdf", content)
	require.NoError(t, err)
	require.Equal(t, core.StatusCompleted, first.Status)
	callsAfterFirst := h.totalCalls()

	// Same bytes again: smart resume finds nothing missing
	second, err := coord.Ingest(ctx, "manual-copy.pdf", content)
	require.NoError(t, err)

	assert.True(t, second.NoOp)
	assert.True(t, second.Resumed)
	assert.Equal(t, "All stages already completed", second.Message)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, callsAfterFirst, h.totalCalls(), "no processor may run on a no-op resume")
}

func TestIngestResumesOnlyMissingStages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	content := []byte("partially processed manual")

	// First run: embedding and search indexing fail
	h.processors[core.StageEmbedding].err = errors.New("embedding service down")
	h.processors[core.StageSearchIndexing].err = errors.New("no embeddings")

	coord := h.coordinator()
	first, err := coord.Ingest(ctx, "manual.pdf", content)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, first.Status)
	assert.Len(t, first.FailedStages, 2)

	// Service recovers; resubmission runs only the two missing stages
	h.processors[core.StageEmbedding].err = nil
	h.processors[core.StageSearchIndexing].err = nil

	second, err := coord.Ingest(ctx, "manual.pdf", content)
	require.NoError(t, err)
	assert.True(t, second.Resumed)
	assert.ElementsMatch(t, []core.Stage{core.StageEmbedding, core.StageSearchIndexing}, second.CompletedStages)
	assert.Equal(t, int64(2), h.processors[core.StageEmbedding].calls.Load())
	assert.Equal(t, int64(1), h.processors[core.StageClassification].calls.Load(), "completed stages must not rerun")
}

func TestPartialFailureMarksCompleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := &core.Document{Filename: "m.pdf", ContentHash: "h1"}
	require.NoError(t, h.store.Documents().CreateDocument(ctx, doc))

	// 10 attempted stages: exactly 3 succeed, 7 fail
	stages := core.AllStages()[1:11]
	for i, stage := range stages {
		if i >= 3 {
			h.processors[stage].err = errors.New("boom")
		}
	}

	result, err := h.coordinator().ProcessStages(ctx, doc.ID, stages)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, result.Status, "any stage success marks the document completed")
	assert.Len(t, result.CompletedStages, 3)
	assert.Len(t, result.FailedStages, 7)

	stored, err := h.store.Documents().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.ProcessingStatus)
	assert.Len(t, stored.FailedStages, 7)
}

func TestAllFailuresMarkFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, p := range h.processors {
		p.err = errors.New("everything is broken")
	}

	result, err := h.coordinator().Ingest(ctx, "m.pdf", []byte("content"))
	require.NoError(t, err)

	assert.Equal(t, core.StatusFailed, result.Status)
	assert.Empty(t, result.CompletedStages)
	assert.Len(t, result.FailedStages, 14)

	// The quality gate still ran
	assert.NotNil(t, result.Quality)
}

func TestHaltOnFirstFailureWhenNotForced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.processors[core.StageTableExtraction].err = errors.New("parser crashed")

	result, err := h.coordinator(WithForceContinueOnErrors(false)).Ingest(ctx, "m.pdf", []byte("content"))
	require.NoError(t, err)

	// text_extraction succeeded, table_extraction failed, nothing after ran
	assert.Equal(t, []core.Stage{core.StageTextExtraction}, result.CompletedStages)
	require.Len(t, result.FailedStages, 1)
	assert.Equal(t, core.StageTableExtraction, result.FailedStages[0].Stage)
	assert.Equal(t, int64(0), h.processors[core.StageImageProcessing].calls.Load())
}

func TestDisabledStageNeverAttempted(t *testing.T) {
	h := newHarness(t)
	h.registry.Disable(core.StageSVGProcessing)
	ctx := context.Background()

	result, err := h.coordinator().Ingest(ctx, "m.pdf", []byte("content"))
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, result.Status)
	assert.Len(t, result.CompletedStages, 13)
	assert.NotContains(t, result.CompletedStages, core.StageSVGProcessing)
	assert.Equal(t, int64(0), h.processors[core.StageSVGProcessing].calls.Load())
}

func TestUnregisteredStageRecordedAsFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := &core.Document{Filename: "m.pdf", ContentHash: "h2"}
	require.NoError(t, h.store.Documents().CreateDocument(ctx, doc))

	registry := NewRegistry() // nothing registered
	coord := NewCoordinator(h.store, h.objects, registry)

	result, err := coord.ProcessStages(ctx, doc.ID, []core.Stage{core.StageClassification})
	require.NoError(t, err)

	require.Len(t, result.FailedStages, 1)
	assert.Contains(t, result.FailedStages[0].Err, "no processor registered")
	assert.Equal(t, core.StatusFailed, result.Status)
}

func TestIngestEmptyContent(t *testing.T) {
	h := newHarness(t)

	_, err := h.coordinator().Ingest(context.Background(), "empty.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

// failingClient rejects every write to simulate an unreachable backend.
type failingClient struct {
	*objectstore.MemoryClient
}

func (f *failingClient) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return minio.UploadInfo{}, errors.New("connection refused")
}

func TestUploadFailureIsFatal(t *testing.T) {
	h := newHarness(t)

	objects, err := objectstore.NewStore(&failingClient{objectstore.NewMemoryClient()}, objectstore.StoreConfig{
		Endpoint:       "http://localhost:9000",
		DocumentBucket: "manuals",
		ImageBucket:    "manual-images",
	})
	require.NoError(t, err)

	coord := NewCoordinator(h.store, objects, h.registry)
	_, err = coord.Ingest(context.Background(), "m.pdf", []byte("content"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, int64(0), h.totalCalls(), "no stage may run after a failed upload")
}

func TestCoordinatorDefaults(t *testing.T) {
	h := newHarness(t)
	coord := h.coordinator()

	assert.True(t, coord.forceContinue)
	assert.Equal(t, 5*time.Minute, coord.stageTimeout)
}
