package storage

import (
	"context"

	"github.com/poiesic/manualflow/core"
)

// DocumentRepository provides operations for managing documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// CreateDocument inserts a new document.
	// Returns ErrDuplicateKey if a document with the same content hash exists.
	CreateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// FindDocumentByHash retrieves a document by its content hash.
	// Returns ErrNotFound if no document has that hash.
	FindDocumentByHash(ctx context.Context, contentHash string) (*core.Document, error)

	// UpdateDocument persists changes to an existing document.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) error

	// SetStageComplete records one stage's completion flag on the persisted
	// stage-status map without touching other flags.
	SetStageComplete(ctx context.Context, id core.ID, stage core.Stage, complete bool) error
}

// ChunkRepository provides operations for managing text chunks.
type ChunkRepository interface {
	// UpsertChunks inserts chunks or updates them in place when the
	// (document, ordinal index) pair already exists. The same ordinal index
	// is never duplicated for a document.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks of a document ordered by index.
	GetChunksByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error)

	// CountChunks returns the number of chunks belonging to a document.
	CountChunks(ctx context.Context, docID core.ID) (int64, error)
}

// ImageRepository provides operations for managing extracted images.
type ImageRepository interface {
	// CreateImage inserts an image unless one with the same content hash
	// already exists for the document. Returns the stored row and whether a
	// new row was created.
	CreateImage(ctx context.Context, img *core.Image) (*core.Image, bool, error)

	// GetImagesByDocument retrieves all images of a document.
	GetImagesByDocument(ctx context.Context, docID core.ID) ([]*core.Image, error)

	// CountImages returns the number of images belonging to a document.
	CountImages(ctx context.Context, docID core.ID) (int64, error)
}

// EmbeddingRepository provides operations for managing embeddings.
type EmbeddingRepository interface {
	// FindEmbedding retrieves the embedding for a (source, model) pair.
	// Returns ErrNotFound if none exists.
	FindEmbedding(ctx context.Context, sourceID core.ID, modelName string) (*core.Embedding, error)

	// CreateEmbedding inserts a new embedding.
	// Returns ErrDuplicateKey if the (source, model) pair already has one.
	CreateEmbedding(ctx context.Context, emb *core.Embedding) error

	// CountEmbeddingsForDocument returns the number of embeddings whose
	// source rows belong to the given document.
	CountEmbeddingsForDocument(ctx context.Context, docID core.ID) (int64, error)

	// FindSimilar finds embeddings nearest to the given vector using the
	// store's native vector capability. Results are ordered by distance.
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.Embedding, error)
}

// LinkRepository provides operations for managing extracted links.
type LinkRepository interface {
	// UpsertLink inserts a link or updates the existing row when the
	// (document, URL) pair already exists.
	UpsertLink(ctx context.Context, link *core.Link) error

	// GetLinksByDocument retrieves all links of a document.
	GetLinksByDocument(ctx context.Context, docID core.ID) ([]*core.Link, error)
}

// VideoRepository provides operations for managing extracted video references.
type VideoRepository interface {
	// UpsertVideo inserts a video or updates the existing row when the
	// (document, URL) pair already exists.
	UpsertVideo(ctx context.Context, video *core.Video) error

	// GetVideosByDocument retrieves all videos of a document.
	GetVideosByDocument(ctx context.Context, docID core.ID) ([]*core.Video, error)
}

// QueueRepository provides operations for the write-ahead processing queue.
type QueueRepository interface {
	// Enqueue stages one or more artifact records for a later drain.
	Enqueue(ctx context.Context, items ...*core.QueueItem) error

	// PendingItems retrieves all pending items for a document and stage,
	// ordered by creation time.
	PendingItems(ctx context.Context, docID core.ID, stage core.Stage) ([]*core.QueueItem, error)

	// MarkConsumed marks an item as consumed exactly once.
	MarkConsumed(ctx context.Context, id core.ID) error

	// MarkFailed marks an item as failed with a reason, leaving it out of
	// future drains.
	MarkFailed(ctx context.Context, id core.ID, reason string) error
}

// DedupIndex aggregates the existence checks used to detect and reuse
// existing records instead of creating duplicates.
type DedupIndex interface {
	// DocumentIDByHash returns the ID of the document with the given content
	// hash, or ok=false when none exists.
	DocumentIDByHash(ctx context.Context, contentHash string) (core.ID, bool, error)

	// ImageExists reports whether the document already has an image with the
	// given content hash.
	ImageExists(ctx context.Context, docID core.ID, contentHash string) (bool, error)

	// ChunkIDByOrdinal returns the ID of the chunk at the given ordinal
	// index within a document, or ok=false when none exists.
	ChunkIDByOrdinal(ctx context.Context, docID core.ID, index int) (core.ID, bool, error)

	// EmbeddingIDBySource returns the ID of the embedding for a
	// (source, model) pair, or ok=false when none exists.
	EmbeddingIDBySource(ctx context.Context, sourceID core.ID, modelName string) (core.ID, bool, error)
}

// Store aggregates every repository backed by one relational store connection.
// The connection strategy is established once at startup and not re-negotiated
// per call; callers see the same interfaces either way.
type Store interface {
	Documents() DocumentRepository
	Chunks() ChunkRepository
	Images() ImageRepository
	Embeddings() EmbeddingRepository
	Links() LinkRepository
	Videos() VideoRepository
	Queue() QueueRepository
	Dedup() DedupIndex

	// Close closes the storage backend and releases resources.
	Close() error
}
