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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - ContentHash must not be empty
//
// NOT validated (populated by stages):
//   - StageStatus (nil until the first stage completes)
//   - Manufacturer/DocType/SeriesModels (set by classification)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if doc.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContentHash)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - DocumentID must not be empty
//   - ChunkIndex must not be negative
//   - ChunkType, when set, must be a known classification
//
// NOT validated (populated by later stages):
//   - CleanedContent (empty until chunk preprocessing runs)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocumentID)
	}

	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkIndex)
	}

	if chunk.ChunkType != "" && !chunk.ChunkType.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidChunk, ErrInvalidChunkType, chunk.ChunkType)
	}

	return nil
}

// ValidateQueueItem validates a QueueItem according to domain rules.
func ValidateQueueItem(item *QueueItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidQueueItem)
	}

	if item.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQueueItem, ErrEmptyDocumentID)
	}

	if !item.ArtifactType.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidQueueItem, ErrInvalidArtifactType, item.ArtifactType)
	}

	return nil
}
