package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ID is a unique identifier for domain entities.
// Stored as a UUID string so it maps onto uuid columns in the relational store.
type ID string

// NewID generates a new random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ProcessingStatus describes the overall lifecycle state of a document.
type ProcessingStatus string

const (
	// StatusPending means the document has been created but not yet processed.
	StatusPending ProcessingStatus = "pending"
	// StatusProcessing means the document is currently mid-pipeline.
	StatusProcessing ProcessingStatus = "processing"
	// StatusCompleted means at least one attempted stage succeeded.
	StatusCompleted ProcessingStatus = "completed"
	// StatusFailed means every attempted stage failed.
	StatusFailed ProcessingStatus = "failed"
)

// ChunkType classifies the detected content of a text chunk.
type ChunkType string

const (
	ChunkTypeErrorCode     ChunkType = "error_code"
	ChunkTypePartsList     ChunkType = "parts_list"
	ChunkTypeProcedure     ChunkType = "procedure"
	ChunkTypeSpecification ChunkType = "specification"
	ChunkTypeTable         ChunkType = "table"
	ChunkTypeText          ChunkType = "text"
	ChunkTypeEmpty         ChunkType = "empty"
)

// Valid reports whether the chunk type is one of the known classifications.
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkTypeErrorCode, ChunkTypePartsList, ChunkTypeProcedure,
		ChunkTypeSpecification, ChunkTypeTable, ChunkTypeText, ChunkTypeEmpty:
		return true
	}
	return false
}

// SourceType identifies the kind of row an embedding was generated from.
type SourceType string

const (
	SourceTypeChunk SourceType = "chunk"
	SourceTypeTable SourceType = "table"
	SourceTypeImage SourceType = "image"
)

// ArtifactType identifies the payload kind of a processing queue item.
type ArtifactType string

const (
	ArtifactTypeLink      ArtifactType = "link"
	ArtifactTypeVideo     ArtifactType = "video"
	ArtifactTypeChunk     ArtifactType = "chunk"
	ArtifactTypeEmbedding ArtifactType = "embedding"
	ArtifactTypeImage     ArtifactType = "image"
)

// Valid reports whether the artifact type is one the drain processor can dispatch.
func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactTypeLink, ArtifactTypeVideo, ArtifactTypeChunk,
		ArtifactTypeEmbedding, ArtifactTypeImage:
		return true
	}
	return false
}

// QueueStatus describes the lifecycle of a processing queue item.
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueConsumed QueueStatus = "consumed"
	QueueFailed   QueueStatus = "failed"
)

// Document represents one ingested service manual.
// The content hash is its strong identity: two uploads of identical bytes
// always resolve to the same document row.
type Document struct {
	ID               ID               `gorm:"type:uuid;primaryKey"`
	Filename         string           `gorm:"size:512;not null"`
	ContentHash      string           `gorm:"size:64;uniqueIndex;not null"`
	ProcessingStatus ProcessingStatus `gorm:"size:16;not null;default:pending;index"`
	StageStatus      BoolMap          `gorm:"type:jsonb"`
	Manufacturer     string           `gorm:"size:128"`
	DocType          string           `gorm:"size:64"`
	SeriesModels     StringList       `gorm:"type:jsonb"`
	FailedStages     StringList       `gorm:"type:jsonb"`
	StoragePath      string           `gorm:"size:1024"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Document) TableName() string { return "documents" }

// Chunk is one text segment of a document, identified within the document by
// its ordinal index. The chunk-preprocessing stage updates chunks in place;
// the same ordinal index is never duplicated.
type Chunk struct {
	ID             ID        `gorm:"type:uuid;primaryKey"`
	DocumentID     ID        `gorm:"type:uuid;not null;uniqueIndex:idx_chunks_doc_ordinal;index"`
	ChunkIndex     int       `gorm:"not null;uniqueIndex:idx_chunks_doc_ordinal"`
	Content        string    `gorm:"type:text"`
	CleanedContent string    `gorm:"type:text"`
	ChunkType      ChunkType `gorm:"size:32;default:text"`
	Metadata       JSONMap   `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Chunk) TableName() string { return "chunks" }

// Image is an extracted figure or diagram. Duplicate pixel content within one
// document is filtered before persistence, so (document, content hash) is unique.
type Image struct {
	ID            ID         `gorm:"type:uuid;primaryKey"`
	DocumentID    ID         `gorm:"type:uuid;not null;uniqueIndex:idx_images_doc_hash;index"`
	ContentHash   string     `gorm:"size:64;not null;uniqueIndex:idx_images_doc_hash"`
	StoragePath   string     `gorm:"size:1024"`
	PublicURL     string     `gorm:"size:2048"`
	OCRText       string     `gorm:"type:text"`
	AIDescription string     `gorm:"type:text"`
	Tags          StringList `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (Image) TableName() string { return "images" }

// Embedding stores a generated vector for a chunk, table or image.
// At most one embedding may exist per (source, model) pair; re-runs look up
// the existing row instead of inserting a duplicate.
type Embedding struct {
	ID             ID              `gorm:"type:uuid;primaryKey"`
	SourceID       ID              `gorm:"type:uuid;not null;uniqueIndex:idx_embeddings_source_model"`
	SourceType     SourceType      `gorm:"size:16;not null"`
	Vector         pgvector.Vector `gorm:"type:vector(1024)"`
	ModelName      string          `gorm:"size:128;not null;uniqueIndex:idx_embeddings_source_model"`
	ContextSnippet string          `gorm:"type:text"`
	CreatedAt      time.Time
}

func (Embedding) TableName() string { return "embeddings" }

// Link is an extracted URL, upserted by URL uniqueness within a document.
type Link struct {
	ID                ID         `gorm:"type:uuid;primaryKey"`
	DocumentID        ID         `gorm:"type:uuid;not null;uniqueIndex:idx_links_doc_url;index"`
	URL               string     `gorm:"size:2048;not null;uniqueIndex:idx_links_doc_url"`
	LinkType          string     `gorm:"size:32"`
	Description       string     `gorm:"type:text"`
	RelatedErrorCodes StringList `gorm:"type:jsonb"`
	Metadata          JSONMap    `gorm:"type:jsonb"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Link) TableName() string { return "links" }

// Video is an extracted video reference, upserted by URL uniqueness within a document.
type Video struct {
	ID         ID      `gorm:"type:uuid;primaryKey"`
	DocumentID ID      `gorm:"type:uuid;not null;uniqueIndex:idx_videos_doc_url;index"`
	URL        string  `gorm:"size:2048;not null;uniqueIndex:idx_videos_doc_url"`
	Title      string  `gorm:"size:512"`
	Platform   string  `gorm:"size:64"`
	Metadata   JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Video) TableName() string { return "videos" }

// QueueItem is a write-ahead staging record produced by upstream stages and
// drained by the storage stage. Each item is consumed exactly once.
type QueueItem struct {
	ID           ID           `gorm:"type:uuid;primaryKey"`
	DocumentID   ID           `gorm:"type:uuid;not null;index"`
	Stage        string       `gorm:"size:32;not null;index"`
	ArtifactType ArtifactType `gorm:"size:16;not null"`
	Payload      string       `gorm:"type:text"`
	Status       QueueStatus  `gorm:"size:16;not null;default:pending;index"`
	Error        string       `gorm:"type:text"`
	CreatedAt    time.Time
	ConsumedAt   *time.Time
}

func (QueueItem) TableName() string { return "processing_queue" }
