package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmbeddingRepository implements storage.EmbeddingRepository on gorm.
type EmbeddingRepository struct {
	db *gorm.DB
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// FindEmbedding retrieves the embedding for a (source, model) pair.
func (r *EmbeddingRepository) FindEmbedding(ctx context.Context, sourceID core.ID, modelName string) (*core.Embedding, error) {
	var emb core.Embedding
	err := r.db.WithContext(ctx).
		First(&emb, "source_id = ? AND model_name = ?", sourceID, modelName).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &emb, nil
}

// CreateEmbedding inserts a new embedding. The unique index on
// (source_id, model_name) enforces at most one row per pair; a violation
// surfaces as ErrDuplicateKey rather than silently creating a twin.
func (r *EmbeddingRepository) CreateEmbedding(ctx context.Context, emb *core.Embedding) error {
	if emb.SourceID == "" {
		return storage.ErrInvalidQuery
	}
	if emb.ModelName == "" {
		return storage.ErrInvalidQuery
	}
	if emb.ID == "" {
		emb.ID = core.NewID()
	}
	return translateError(r.db.WithContext(ctx).Create(emb).Error)
}

// CountEmbeddingsForDocument counts embeddings whose source rows (chunks or
// images) belong to the given document.
func (r *EmbeddingRepository) CountEmbeddingsForDocument(ctx context.Context, docID core.ID) (int64, error) {
	chunkIDs := r.db.Model(&core.Chunk{}).Select("id").Where("document_id = ?", docID)
	imageIDs := r.db.Model(&core.Image{}).Select("id").Where("document_id = ?", docID)

	var count int64
	err := r.db.WithContext(ctx).Model(&core.Embedding{}).
		Where("source_id IN (?) OR source_id IN (?)", chunkIDs, imageIDs).
		Count(&count).Error
	return count, translateError(err)
}

// FindSimilar returns the embeddings nearest to the given vector, ordered by
// cosine distance. Similarity search is delegated to the store's native
// vector capability; no separate index is maintained.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.Embedding, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var embeddings []*core.Embedding
	err := r.db.WithContext(ctx).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "vector <=> ?",
			Vars:               []any{pgvector.NewVector(vector)},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Find(&embeddings).Error
	if err != nil {
		return nil, translateError(err)
	}
	return embeddings, nil
}
