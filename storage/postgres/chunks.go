package postgres

import (
	"context"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkRepository implements storage.ChunkRepository on gorm.
type ChunkRepository struct {
	db *gorm.DB
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// UpsertChunks inserts chunks, updating content in place when the
// (document, ordinal index) pair already exists.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		if chunk.ID == "" {
			chunk.ID = core.NewID()
		}
		if chunk.ChunkType == "" {
			chunk.ChunkType = core.ChunkTypeText
		}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "cleaned_content", "chunk_type", "metadata", "updated_at",
		}),
	}).Create(&chunks).Error
	if err != nil {
		return nil, translateError(err)
	}
	return chunks, nil
}

// GetChunksByDocument retrieves all chunks of a document ordered by index.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("chunk_index asc").
		Find(&chunks).Error
	if err != nil {
		return nil, translateError(err)
	}
	return chunks, nil
}

// CountChunks returns the exact chunk count for a document.
func (r *ChunkRepository) CountChunks(ctx context.Context, docID core.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&core.Chunk{}).
		Where("document_id = ?", docID).
		Count(&count).Error
	return count, translateError(err)
}
