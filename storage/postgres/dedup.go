package postgres

import (
	"context"
	"errors"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
)

// DedupIndex implements storage.DedupIndex with exact-match queries against
// the unique indexes of each table. Lookups never mutate anything.
type DedupIndex struct {
	db *gorm.DB
}

var _ storage.DedupIndex = (*DedupIndex)(nil)

// DocumentIDByHash resolves a content hash to an existing document ID.
func (d *DedupIndex) DocumentIDByHash(ctx context.Context, contentHash string) (core.ID, bool, error) {
	var doc core.Document
	err := d.db.WithContext(ctx).Select("id").
		First(&doc, "content_hash = ?", contentHash).Error
	return found(doc.ID, err)
}

// ImageExists reports whether a document already has an image with the hash.
func (d *DedupIndex) ImageExists(ctx context.Context, docID core.ID, contentHash string) (bool, error) {
	var img core.Image
	err := d.db.WithContext(ctx).Select("id").
		First(&img, "document_id = ? AND content_hash = ?", docID, contentHash).Error
	_, ok, err := found(img.ID, err)
	return ok, err
}

// ChunkIDByOrdinal resolves a (document, ordinal index) pair to a chunk ID.
func (d *DedupIndex) ChunkIDByOrdinal(ctx context.Context, docID core.ID, index int) (core.ID, bool, error) {
	var chunk core.Chunk
	err := d.db.WithContext(ctx).Select("id").
		First(&chunk, "document_id = ? AND chunk_index = ?", docID, index).Error
	return found(chunk.ID, err)
}

// EmbeddingIDBySource resolves a (source, model) pair to an embedding ID.
func (d *DedupIndex) EmbeddingIDBySource(ctx context.Context, sourceID core.ID, modelName string) (core.ID, bool, error) {
	var emb core.Embedding
	err := d.db.WithContext(ctx).Select("id").
		First(&emb, "source_id = ? AND model_name = ?", sourceID, modelName).Error
	return found(emb.ID, err)
}

func found(id core.ID, err error) (core.ID, bool, error) {
	switch {
	case err == nil:
		return id, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, translateError(err)
	}
}
