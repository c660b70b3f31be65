// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedbatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/manualflow/ai"
	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
)

// Config configures the adaptive batcher.
type Config struct {
	// ModelName identifies the embedding model; together with the source ID
	// it forms the uniqueness key for stored embeddings.
	ModelName string

	// InitialBatchSize is the starting batch size. MinBatchSize and
	// MaxBatchSize bound the size as it adapts.
	InitialBatchSize int
	MinBatchSize     int
	MaxBatchSize     int

	// StepSize is how much the batch size moves per adjustment.
	StepSize int

	// LatencyLow and LatencyHigh are the target latency band for one batch
	// round-trip. Below the band the batch grows, above it shrinks.
	LatencyLow  time.Duration
	LatencyHigh time.Duration

	// MaxRetries and RetryBaseDelay control the retry policy for embedding
	// service calls.
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Progress, when set, receives progress output during long runs.
	Progress io.Writer
}

func (c *Config) applyDefaults() {
	if c.InitialBatchSize == 0 {
		c.InitialBatchSize = 100
	}
	if c.MinBatchSize == 0 {
		c.MinBatchSize = 10
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 500
	}
	if c.StepSize == 0 {
		c.StepSize = 25
	}
	if c.LatencyLow == 0 {
		c.LatencyLow = 2 * time.Second
	}
	if c.LatencyHigh == 0 {
		c.LatencyHigh = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
}

// Result summarizes one embedding run.
type Result struct {
	// EmbeddingsCreated is the number of new embedding rows written.
	EmbeddingsCreated int

	// Skipped counts chunks that already had an embedding for the model.
	Skipped int

	// FailedCount counts chunks whose embedding could not be generated or
	// stored.
	FailedCount int

	// FinalBatchSize is the adapted batch size at the end of the run.
	FinalBatchSize int
}

// Batcher generates embeddings for chunks in adaptively sized batches.
// Chunks that already have an embedding for the configured model are skipped,
// so re-running over the same chunk set never creates duplicates. Batch size
// follows observed round-trip latency: fast batches grow it, slow batches
// shrink it, always within the configured bounds.
type Batcher struct {
	embeddings storage.EmbeddingRepository
	dedup      storage.DedupIndex
	embedder   ai.Embedder
	config     Config
	batchSize  int
	logger     *slog.Logger
}

// New creates an adaptive batcher. Zero config fields take defaults; the
// resolved bounds must satisfy 0 < min <= initial <= max.
func New(embeddings storage.EmbeddingRepository, dedup storage.DedupIndex, embedder ai.Embedder, config Config) (*Batcher, error) {
	config.applyDefaults()
	if config.MinBatchSize <= 0 || config.MinBatchSize > config.InitialBatchSize || config.InitialBatchSize > config.MaxBatchSize {
		return nil, fmt.Errorf("%w: min=%d initial=%d max=%d", ErrInvalidBatchBounds,
			config.MinBatchSize, config.InitialBatchSize, config.MaxBatchSize)
	}
	if config.ModelName == "" {
		return nil, fmt.Errorf("embedbatch: model name is required")
	}

	return &Batcher{
		embeddings: embeddings,
		dedup:      dedup,
		embedder:   embedder,
		config:     config,
		batchSize:  config.InitialBatchSize,
		logger:     slog.Default().With("component", "embed-batcher"),
	}, nil
}

// BatchSize returns the current adapted batch size.
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// EmbedChunks generates and stores embeddings for the given chunks.
// Failures are batch-local: a batch that fails after retries is counted and
// the run continues with the next batch.
func (b *Batcher) EmbedChunks(ctx context.Context, chunks []*core.Chunk) (*Result, error) {
	result := &Result{FinalBatchSize: b.batchSize}

	pending, skipped := b.filterExisting(ctx, chunks)
	result.Skipped = skipped
	if len(pending) == 0 {
		b.logger.Info("no chunks need embedding", "total", len(chunks), "skipped", skipped)
		return result, nil
	}

	var progress *ProgressTracker
	if b.config.Progress != nil {
		progress = NewProgressTracker(b.config.Progress, len(pending), b.config.MinBatchSize)
		progress.Start()
		defer progress.Finish()
	}

	for start := 0; start < len(pending); {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+b.batchSize, len(pending))
		batch := pending[start:end]

		elapsed, err := b.processBatch(ctx, batch, result)
		if err != nil {
			b.logger.Warn("batch failed", "size", len(batch), "err", err)
			result.FailedCount += len(batch)
		} else {
			b.adjustBatchSize(elapsed, len(batch))
		}

		// Advance by what was actually processed; adjustBatchSize may have
		// already moved b.batchSize for the next iteration.
		start += len(batch)

		if progress != nil {
			progress.Increment(len(batch))
		}
	}

	result.FinalBatchSize = b.batchSize
	b.logger.Info("embedding run finished",
		"created", result.EmbeddingsCreated,
		"skipped", result.Skipped,
		"failed", result.FailedCount,
		"batch_size", b.batchSize)
	return result, nil
}

// filterExisting splits chunks into those needing embeddings and the count
// already covered. Dedup lookup failures are never fatal: the chunk proceeds
// to generation and the unique index catches any race.
func (b *Batcher) filterExisting(ctx context.Context, chunks []*core.Chunk) ([]*core.Chunk, int) {
	pending := make([]*core.Chunk, 0, len(chunks))
	skipped := 0
	for _, chunk := range chunks {
		_, ok, err := b.dedup.EmbeddingIDBySource(ctx, chunk.ID, b.config.ModelName)
		if err != nil {
			b.logger.Warn("dedup lookup failed, proceeding with generation", "chunk_id", chunk.ID, "err", err)
			pending = append(pending, chunk)
			continue
		}
		if ok {
			skipped++
			continue
		}
		pending = append(pending, chunk)
	}
	return pending, skipped
}

// processBatch embeds one batch and stores the rows. Returns the embedding
// service round-trip time used for batch size adaptation.
func (b *Batcher) processBatch(ctx context.Context, batch []*core.Chunk, result *Result) (time.Duration, error) {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = embeddingText(chunk)
	}

	var vectors [][]float32
	startedAt := time.Now()
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = b.embedder.EmbedTexts(ctx, texts)
		return err
	}, b.config.MaxRetries, b.config.RetryBaseDelay)
	elapsed := time.Since(startedAt)

	if err != nil {
		return elapsed, fmt.Errorf("generating embeddings after %d attempts: %w", b.config.MaxRetries, err)
	}
	if len(vectors) != len(batch) {
		return elapsed, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	for i, chunk := range batch {
		emb := &core.Embedding{
			ID:             core.NewID(),
			SourceID:       chunk.ID,
			SourceType:     core.SourceTypeChunk,
			Vector:         pgvector.NewVector(NormalizeVector(vectors[i])),
			ModelName:      b.config.ModelName,
			ContextSnippet: snippet(texts[i]),
		}
		if err := b.embeddings.CreateEmbedding(ctx, emb); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				// Lost a race with a concurrent run; the existing row wins.
				result.Skipped++
				continue
			}
			b.logger.Warn("failed to store embedding", "chunk_id", chunk.ID, "err", err)
			result.FailedCount++
			continue
		}
		result.EmbeddingsCreated++
	}

	return elapsed, nil
}

// adjustBatchSize moves the batch size one step based on observed latency.
// A short batch (below the low target) grows it, a slow batch shrinks it,
// and the size never leaves [MinBatchSize, MaxBatchSize].
func (b *Batcher) adjustBatchSize(elapsed time.Duration, batchLen int) {
	// Partial trailing batches would read as artificially fast.
	if batchLen < b.batchSize {
		return
	}

	switch {
	case elapsed < b.config.LatencyLow:
		next := b.batchSize + b.config.StepSize
		if next > b.config.MaxBatchSize {
			next = b.config.MaxBatchSize
		}
		if next != b.batchSize {
			b.logger.Debug("growing batch size", "from", b.batchSize, "to", next, "latency", elapsed)
			b.batchSize = next
		}
	case elapsed > b.config.LatencyHigh:
		next := b.batchSize - b.config.StepSize
		if next < b.config.MinBatchSize {
			next = b.config.MinBatchSize
		}
		if next != b.batchSize {
			b.logger.Debug("shrinking batch size", "from", b.batchSize, "to", next, "latency", elapsed)
			b.batchSize = next
		}
	}
}

func embeddingText(chunk *core.Chunk) string {
	if chunk.CleanedContent != "" {
		return chunk.CleanedContent
	}
	return chunk.Content
}

// snippet truncates text to at most 200 bytes without splitting a rune.
func snippet(text string) string {
	const maxSnippet = 200
	if len(text) <= maxSnippet {
		return text
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
