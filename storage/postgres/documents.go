package postgres

import (
	"context"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
)

// DocumentRepository implements storage.DocumentRepository on gorm.
type DocumentRepository struct {
	db *gorm.DB
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// CreateDocument inserts a new document, generating an ID when none is set.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = core.NewID()
	}
	if doc.ProcessingStatus == "" {
		doc.ProcessingStatus = core.StatusPending
	}
	return translateError(r.db.WithContext(ctx).Create(doc).Error)
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc core.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &doc, nil
}

// FindDocumentByHash retrieves a document by its content hash.
func (r *DocumentRepository) FindDocumentByHash(ctx context.Context, contentHash string) (*core.Document, error) {
	var doc core.Document
	err := r.db.WithContext(ctx).First(&doc, "content_hash = ?", contentHash).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &doc, nil
}

// UpdateDocument persists all fields of an existing document.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) error {
	if doc.ID == "" {
		return storage.ErrInvalidQuery
	}
	res := r.db.WithContext(ctx).Model(&core.Document{}).
		Where("id = ?", doc.ID).
		Select("*").Omit("id", "created_at").
		Updates(doc)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetStageComplete updates one flag of the persisted stage-status map.
// Runs as a read-modify-write inside a transaction. Stages of one document
// execute sequentially under a single coordinator, so the map is never
// written concurrently for the same document.
func (r *DocumentRepository) SetStageComplete(ctx context.Context, id core.ID, stage core.Stage, complete bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc core.Document
		if err := tx.First(&doc, "id = ?", id).Error; err != nil {
			return translateError(err)
		}
		if doc.StageStatus == nil {
			doc.StageStatus = core.BoolMap{}
		}
		doc.StageStatus[stage.String()] = complete
		return translateError(tx.Model(&core.Document{}).
			Where("id = ?", id).
			Update("stage_status", doc.StageStatus).Error)
	})
}
