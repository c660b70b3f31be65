package postgres

import (
	"context"
	"errors"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
)

// ImageRepository implements storage.ImageRepository on gorm.
type ImageRepository struct {
	db *gorm.DB
}

var _ storage.ImageRepository = (*ImageRepository)(nil)

// CreateImage inserts an image unless one with the same content hash already
// exists for the document. At most one row per distinct hash per document.
func (r *ImageRepository) CreateImage(ctx context.Context, img *core.Image) (*core.Image, bool, error) {
	if img.DocumentID == "" {
		return nil, false, core.ErrEmptyDocumentID
	}
	if img.ContentHash == "" {
		return nil, false, core.ErrEmptyContentHash
	}

	var existing core.Image
	err := r.db.WithContext(ctx).
		First(&existing, "document_id = ? AND content_hash = ?", img.DocumentID, img.ContentHash).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, translateError(err)
	}

	if img.ID == "" {
		img.ID = core.NewID()
	}
	if err := r.db.WithContext(ctx).Create(img).Error; err != nil {
		// A concurrent insert of the same hash loses the race; reuse the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ferr := r.db.WithContext(ctx).
				First(&existing, "document_id = ? AND content_hash = ?", img.DocumentID, img.ContentHash).Error; ferr == nil {
				return &existing, false, nil
			}
		}
		return nil, false, translateError(err)
	}
	return img, true, nil
}

// GetImagesByDocument retrieves all images of a document.
func (r *ImageRepository) GetImagesByDocument(ctx context.Context, docID core.ID) ([]*core.Image, error) {
	var images []*core.Image
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at asc").
		Find(&images).Error
	if err != nil {
		return nil, translateError(err)
	}
	return images, nil
}

// CountImages returns the exact image count for a document.
func (r *ImageRepository) CountImages(ctx context.Context, docID core.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&core.Image{}).
		Where("document_id = ?", docID).
		Count(&count).Error
	return count, translateError(err)
}
