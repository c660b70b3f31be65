// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package drain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/objectstore"
	"github.com/poiesic/manualflow/storage"
)

// ItemError records one queue item that could not be persisted.
type ItemError struct {
	ItemID       core.ID
	ArtifactType core.ArtifactType
	Err          string
}

// Result summarizes one drain run.
type Result struct {
	// SavedCount is the number of artifacts persisted.
	SavedCount int

	// Errors lists the items that failed; the drain continues past them.
	Errors []ItemError
}

// Processor drains the write-ahead processing queue for a document,
// dispatching each pending item to the persistence routine for its artifact
// type. Failures are item-local: a bad payload or a failed image upload is
// recorded and the drain moves on. An empty queue is a valid empty case,
// not an error.
type Processor struct {
	store   storage.Store
	objects *objectstore.Store
	logger  *slog.Logger
}

// New creates a drain processor.
func New(store storage.Store, objects *objectstore.Store) *Processor {
	return &Processor{
		store:   store,
		objects: objects,
		logger:  slog.Default().With("component", "storage-drain"),
	}
}

// Drain persists all pending queue items for the document's storage stage.
func (p *Processor) Drain(ctx context.Context, docID core.ID) (*Result, error) {
	items, err := p.store.Queue().PendingItems(ctx, docID, core.StageStorage)
	if err != nil {
		return nil, fmt.Errorf("reading pending queue items: %w", err)
	}

	result := &Result{}
	if len(items) == 0 {
		p.logger.Debug("queue empty, nothing to drain", "document_id", docID)
		return result, nil
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		saved, itemErr := p.saveItem(ctx, item)
		if itemErr != nil {
			result.Errors = append(result.Errors, ItemError{
				ItemID:       item.ID,
				ArtifactType: item.ArtifactType,
				Err:          itemErr.Error(),
			})
			if markErr := p.store.Queue().MarkFailed(ctx, item.ID, itemErr.Error()); markErr != nil {
				p.logger.Warn("failed to mark queue item failed", "item_id", item.ID, "err", markErr)
			}
			continue
		}

		if saved {
			result.SavedCount++
		}
		if markErr := p.store.Queue().MarkConsumed(ctx, item.ID); markErr != nil {
			p.logger.Warn("failed to mark queue item consumed", "item_id", item.ID, "err", markErr)
		}
	}

	p.logger.Info("drain complete",
		"document_id", docID,
		"saved", result.SavedCount,
		"errors", len(result.Errors))
	return result, nil
}

// saveItem dispatches one queue item by artifact type. The bool reports
// whether an artifact was actually persisted; a parsed-but-empty payload is
// consumed without saving anything.
func (p *Processor) saveItem(ctx context.Context, item *core.QueueItem) (bool, error) {
	switch item.ArtifactType {
	case core.ArtifactTypeLink:
		return p.saveLink(ctx, item)
	case core.ArtifactTypeVideo:
		return p.saveVideo(ctx, item)
	case core.ArtifactTypeChunk:
		return p.saveChunk(ctx, item)
	case core.ArtifactTypeEmbedding:
		return p.saveEmbedding(ctx, item)
	case core.ArtifactTypeImage:
		return p.saveImage(ctx, item)
	default:
		return false, fmt.Errorf("%w: %q", core.ErrInvalidArtifactType, item.ArtifactType)
	}
}

func (p *Processor) saveLink(ctx context.Context, item *core.QueueItem) (bool, error) {
	var payload linkPayload
	if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
		return false, fmt.Errorf("parsing link payload: %w", err)
	}
	if payload.URL == "" {
		// Empty but valid artifact
		return false, nil
	}

	link := &core.Link{
		ID:                core.NewID(),
		DocumentID:        item.DocumentID,
		URL:               payload.URL,
		LinkType:          payload.LinkType,
		Description:       payload.Description,
		RelatedErrorCodes: payload.RelatedErrorCodes,
		Metadata:          payload.Metadata,
	}
	if err := p.store.Links().UpsertLink(ctx, link); err != nil {
		return false, fmt.Errorf("upserting link: %w", err)
	}
	return true, nil
}

func (p *Processor) saveVideo(ctx context.Context, item *core.QueueItem) (bool, error) {
	var payload videoPayload
	if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
		return false, fmt.Errorf("parsing video payload: %w", err)
	}
	if payload.URL == "" {
		return false, nil
	}

	video := &core.Video{
		ID:         core.NewID(),
		DocumentID: item.DocumentID,
		URL:        payload.URL,
		Title:      payload.Title,
		Platform:   payload.Platform,
		Metadata:   payload.Metadata,
	}
	if err := p.store.Videos().UpsertVideo(ctx, video); err != nil {
		return false, fmt.Errorf("upserting video: %w", err)
	}
	return true, nil
}

func (p *Processor) saveChunk(ctx context.Context, item *core.QueueItem) (bool, error) {
	var payload chunkPayload
	if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
		return false, fmt.Errorf("parsing chunk payload: %w", err)
	}
	if payload.Content == "" && payload.CleanedContent == "" {
		return false, nil
	}

	chunk := &core.Chunk{
		ID:             core.NewID(),
		DocumentID:     item.DocumentID,
		ChunkIndex:     payload.ChunkIndex,
		Content:        payload.Content,
		CleanedContent: payload.CleanedContent,
		ChunkType:      chunkTypeOrDefault(payload.ChunkType),
		Metadata:       payload.Metadata,
	}
	if _, err := p.store.Chunks().UpsertChunks(ctx, chunk); err != nil {
		return false, fmt.Errorf("upserting chunk: %w", err)
	}
	return true, nil
}

func (p *Processor) saveEmbedding(ctx context.Context, item *core.QueueItem) (bool, error) {
	var payload embeddingPayload
	if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
		return false, fmt.Errorf("parsing embedding payload: %w", err)
	}
	if payload.SourceID == "" || len(payload.Vector) == 0 {
		return false, nil
	}

	emb := &core.Embedding{
		ID:             core.NewID(),
		SourceID:       core.ID(payload.SourceID),
		SourceType:     core.SourceType(payload.SourceType),
		Vector:         pgvector.NewVector(payload.Vector),
		ModelName:      payload.ModelName,
		ContextSnippet: payload.ContextSnippet,
	}
	if err := p.store.Embeddings().CreateEmbedding(ctx, emb); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Already stored by an earlier run
			return false, nil
		}
		return false, fmt.Errorf("creating embedding: %w", err)
	}
	return true, nil
}

func (p *Processor) saveImage(ctx context.Context, item *core.QueueItem) (bool, error) {
	var payload imagePayload
	if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
		return false, fmt.Errorf("parsing image payload: %w", err)
	}
	if payload.DataBase64 == "" {
		return false, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload.DataBase64)
	if err != nil {
		return false, fmt.Errorf("decoding image data: %w", err)
	}

	// Image bytes route through the content-addressable store; the row only
	// records where they landed.
	put, err := p.objects.Put(ctx, data, payload.Filename, objectstore.ClassImage, map[string]string{
		"document_id": string(item.DocumentID),
	})
	if err != nil {
		return false, fmt.Errorf("uploading image: %w", err)
	}

	img := &core.Image{
		ID:            core.NewID(),
		DocumentID:    item.DocumentID,
		ContentHash:   put.ContentHash,
		StoragePath:   put.StoragePath,
		PublicURL:     p.objects.URL(put),
		OCRText:       payload.OCRText,
		AIDescription: payload.AIDescription,
		Tags:          payload.Tags,
	}
	_, created, err := p.store.Images().CreateImage(ctx, img)
	if err != nil {
		return false, fmt.Errorf("creating image row: %w", err)
	}
	return created, nil
}
