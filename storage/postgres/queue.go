package postgres

import (
	"context"
	"time"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/gorm"
)

// QueueRepository implements storage.QueueRepository on gorm.
type QueueRepository struct {
	db *gorm.DB
}

var _ storage.QueueRepository = (*QueueRepository)(nil)

// Enqueue stages artifact records for a later drain.
func (r *QueueRepository) Enqueue(ctx context.Context, items ...*core.QueueItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if err := core.ValidateQueueItem(item); err != nil {
			return err
		}
		if item.ID == "" {
			item.ID = core.NewID()
		}
		if item.Status == "" {
			item.Status = core.QueuePending
		}
	}
	return translateError(r.db.WithContext(ctx).Create(&items).Error)
}

// PendingItems retrieves all pending items for a document and stage in
// creation order.
func (r *QueueRepository) PendingItems(ctx context.Context, docID core.ID, stage core.Stage) ([]*core.QueueItem, error) {
	var items []*core.QueueItem
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND stage = ? AND status = ?", docID, stage.String(), core.QueuePending).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// MarkConsumed marks a pending item as consumed. The status guard makes the
// transition effective exactly once even under concurrent drains.
func (r *QueueRepository) MarkConsumed(ctx context.Context, id core.ID) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&core.QueueItem{}).
		Where("id = ? AND status = ?", id, core.QueuePending).
		Updates(map[string]any{"status": core.QueueConsumed, "consumed_at": &now})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkFailed marks a pending item as failed with a reason.
func (r *QueueRepository) MarkFailed(ctx context.Context, id core.ID, reason string) error {
	res := r.db.WithContext(ctx).Model(&core.QueueItem{}).
		Where("id = ? AND status = ?", id, core.QueuePending).
		Updates(map[string]any{"status": core.QueueFailed, "error": reason})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
