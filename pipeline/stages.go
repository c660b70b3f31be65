package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/manualflow/ai"
	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/drain"
	"github.com/poiesic/manualflow/embedbatch"
	"github.com/poiesic/manualflow/storage"
)

// Built-in processors for the stages whose logic lives in this module.
// Extraction stages (text, tables, images, links) are external collaborators
// and are registered by the caller, typically as ProcessorFunc bridges to
// the extraction service.

// classificationSampleLimit bounds how much chunk text is sent to the
// classifier; the opening pages identify a manual reliably.
const classificationSampleLimit = 4000

// ClassificationProcessor fills the document's manufacturer, type, and
// covered models from a text sample.
type ClassificationProcessor struct {
	store      storage.Store
	classifier ai.DocumentClassifier
	logger     *slog.Logger
}

// NewClassificationProcessor creates the classification stage processor.
func NewClassificationProcessor(store storage.Store, classifier ai.DocumentClassifier) *ClassificationProcessor {
	return &ClassificationProcessor{
		store:      store,
		classifier: classifier,
		logger:     slog.Default().With("component", "classification-stage"),
	}
}

func (p *ClassificationProcessor) Process(ctx context.Context, doc *core.Document) error {
	chunks, err := p.store.Chunks().GetChunksByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}

	var sample strings.Builder
	for _, chunk := range chunks {
		if sample.Len() >= classificationSampleLimit {
			break
		}
		sample.WriteString(chunk.Content)
		sample.WriteString("\n")
	}

	cls, err := p.classifier.ClassifyDocument(ctx, sample.String(), doc.Filename)
	if err != nil {
		return fmt.Errorf("classifying document: %w", err)
	}

	fresh, err := p.store.Documents().GetDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("reloading document: %w", err)
	}
	fresh.Manufacturer = cls.Manufacturer
	fresh.DocType = cls.DocType
	fresh.SeriesModels = cls.Models
	if err := p.store.Documents().UpdateDocument(ctx, fresh); err != nil {
		return fmt.Errorf("saving classification: %w", err)
	}

	p.logger.Info("document classified",
		"document_id", doc.ID,
		"manufacturer", cls.Manufacturer,
		"doc_type", cls.DocType,
		"confidence", cls.Confidence)
	return nil
}

// EmbeddingProcessor generates embeddings for the document's chunks through
// the adaptive batcher.
type EmbeddingProcessor struct {
	store   storage.Store
	batcher *embedbatch.Batcher
	logger  *slog.Logger
}

// NewEmbeddingProcessor creates the embedding stage processor.
func NewEmbeddingProcessor(store storage.Store, batcher *embedbatch.Batcher) *EmbeddingProcessor {
	return &EmbeddingProcessor{
		store:   store,
		batcher: batcher,
		logger:  slog.Default().With("component", "embedding-stage"),
	}
}

func (p *EmbeddingProcessor) Process(ctx context.Context, doc *core.Document) error {
	chunks, err := p.store.Chunks().GetChunksByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		// A document without chunks has nothing to embed; valid empty case.
		p.logger.Debug("no chunks to embed", "document_id", doc.ID)
		return nil
	}

	result, err := p.batcher.EmbedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if result.FailedCount > 0 && result.EmbeddingsCreated == 0 && result.Skipped == 0 {
		return fmt.Errorf("all %d chunks failed to embed", result.FailedCount)
	}

	p.logger.Info("embedding stage finished",
		"document_id", doc.ID,
		"created", result.EmbeddingsCreated,
		"skipped", result.Skipped,
		"failed", result.FailedCount)
	return nil
}

// StorageProcessor drains the write-ahead queue for the document.
type StorageProcessor struct {
	drainer *drain.Processor
	logger  *slog.Logger
}

// NewStorageProcessor creates the storage stage processor.
func NewStorageProcessor(drainer *drain.Processor) *StorageProcessor {
	return &StorageProcessor{
		drainer: drainer,
		logger:  slog.Default().With("component", "storage-stage"),
	}
}

func (p *StorageProcessor) Process(ctx context.Context, doc *core.Document) error {
	result, err := p.drainer.Drain(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("draining queue: %w", err)
	}
	// Item-local failures do not fail the stage; they were recorded and
	// the rest of the queue was persisted.
	if len(result.Errors) > 0 {
		p.logger.Warn("drain completed with item errors",
			"document_id", doc.ID,
			"saved", result.SavedCount,
			"errors", len(result.Errors))
	}
	return nil
}

// SearchIndexingProcessor verifies the document's embeddings are queryable.
// Similarity search is delegated to the relational store's native vector
// capability, so the stage is a verification marker rather than an index
// build.
type SearchIndexingProcessor struct {
	store  storage.Store
	logger *slog.Logger
}

// NewSearchIndexingProcessor creates the search indexing stage processor.
func NewSearchIndexingProcessor(store storage.Store) *SearchIndexingProcessor {
	return &SearchIndexingProcessor{
		store:  store,
		logger: slog.Default().With("component", "search-indexing-stage"),
	}
}

func (p *SearchIndexingProcessor) Process(ctx context.Context, doc *core.Document) error {
	chunkCount, err := p.store.Chunks().CountChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}
	if chunkCount == 0 {
		return nil
	}

	embeddingCount, err := p.store.Embeddings().CountEmbeddingsForDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("counting embeddings: %w", err)
	}
	if embeddingCount == 0 {
		return fmt.Errorf("no embeddings available for %d chunks", chunkCount)
	}

	p.logger.Info("search indexing verified",
		"document_id", doc.ID,
		"embeddings", embeddingCount)
	return nil
}
