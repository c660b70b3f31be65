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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
)

// StatusTracker computes per-stage completion for a document.
//
// Two strategies are merged: the persisted status map on the document row,
// and derived probes over the artifact tables (chunks present implies the
// text stages ran, embeddings present implies the embedding stages ran, and
// so on). The probes let the tracker recover correct state even when the
// persisted map was never written.
type StatusTracker struct {
	store  storage.Store
	logger *slog.Logger
}

// NewStatusTracker creates a tracker over the given store.
func NewStatusTracker(store storage.Store) *StatusTracker {
	return &StatusTracker{
		store:  store,
		logger: slog.Default().With("component", "status-tracker"),
	}
}

// StatusOf returns the completion flag for every stage of a document.
func (t *StatusTracker) StatusOf(ctx context.Context, docID core.ID) (map[core.Stage]bool, error) {
	doc, err := t.store.Documents().GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	status := make(map[core.Stage]bool, len(core.AllStages()))
	for _, stage := range core.AllStages() {
		status[stage] = doc.StageStatus[stage.String()]
	}

	// The document row existing means the upload stage ran.
	status[core.StageUpload] = true

	if err := t.mergeDerived(ctx, doc, status); err != nil {
		return nil, err
	}
	return status, nil
}

// mergeDerived ORs in completion signals derived from artifact presence.
func (t *StatusTracker) mergeDerived(ctx context.Context, doc *core.Document, status map[core.Stage]bool) error {
	chunkCount, err := t.store.Chunks().CountChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}
	if chunkCount > 0 {
		status[core.StageTextExtraction] = true
		status[core.StageChunkPreprocessing] = true
	}

	imageCount, err := t.store.Images().CountImages(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("counting images: %w", err)
	}
	if imageCount > 0 {
		status[core.StageImageProcessing] = true
		status[core.StageStorage] = true
	}

	if doc.Manufacturer != "" && doc.DocType != "" {
		status[core.StageClassification] = true
	}

	embeddingCount, err := t.store.Embeddings().CountEmbeddingsForDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("counting embeddings: %w", err)
	}
	if embeddingCount > 0 {
		status[core.StageEmbedding] = true
		status[core.StageSearchIndexing] = true
	}

	return nil
}

// MissingStages returns the stages still incomplete for a document, in
// execution order, excluding stages the registry has disabled.
func (t *StatusTracker) MissingStages(ctx context.Context, docID core.ID, registry *Registry) ([]core.Stage, error) {
	status, err := t.StatusOf(ctx, docID)
	if err != nil {
		return nil, err
	}

	var missing []core.Stage
	for _, stage := range core.AllStages() {
		if status[stage] {
			continue
		}
		if !registry.Enabled(stage) {
			continue
		}
		missing = append(missing, stage)
	}
	return missing, nil
}
