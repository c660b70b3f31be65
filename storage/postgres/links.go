package postgres

import (
	"context"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkRepository implements storage.LinkRepository on gorm.
type LinkRepository struct {
	db *gorm.DB
}

var _ storage.LinkRepository = (*LinkRepository)(nil)

// UpsertLink inserts a link or updates the existing row for the same
// (document, URL) pair.
func (r *LinkRepository) UpsertLink(ctx context.Context, link *core.Link) error {
	if link.DocumentID == "" {
		return core.ErrEmptyDocumentID
	}
	if link.URL == "" {
		return storage.ErrInvalidQuery
	}
	if link.ID == "" {
		link.ID = core.NewID()
	}

	return translateError(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"link_type", "description", "related_error_codes", "metadata", "updated_at",
		}),
	}).Create(link).Error)
}

// GetLinksByDocument retrieves all links of a document.
func (r *LinkRepository) GetLinksByDocument(ctx context.Context, docID core.ID) ([]*core.Link, error) {
	var links []*core.Link
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at asc").
		Find(&links).Error
	if err != nil {
		return nil, translateError(err)
	}
	return links, nil
}

// VideoRepository implements storage.VideoRepository on gorm.
type VideoRepository struct {
	db *gorm.DB
}

var _ storage.VideoRepository = (*VideoRepository)(nil)

// UpsertVideo inserts a video or updates the existing row for the same
// (document, URL) pair.
func (r *VideoRepository) UpsertVideo(ctx context.Context, video *core.Video) error {
	if video.DocumentID == "" {
		return core.ErrEmptyDocumentID
	}
	if video.URL == "" {
		return storage.ErrInvalidQuery
	}
	if video.ID == "" {
		video.ID = core.NewID()
	}

	return translateError(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "platform", "metadata", "updated_at",
		}),
	}).Create(video).Error)
}

// GetVideosByDocument retrieves all videos of a document.
func (r *VideoRepository) GetVideosByDocument(ctx context.Context, docID core.ID) ([]*core.Video, error) {
	var videos []*core.Video
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at asc").
		Find(&videos).Error
	if err != nil {
		return nil, translateError(err)
	}
	return videos, nil
}
