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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidQueueItem indicates a QueueItem failed validation.
	ErrInvalidQueueItem = errors.New("invalid queue item")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyContentHash indicates the ContentHash field is empty.
	ErrEmptyContentHash = errors.New("content hash cannot be empty")

	// ErrEmptyDocumentID indicates a required document reference is missing.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrNegativeChunkIndex indicates a chunk ordinal index below zero.
	ErrNegativeChunkIndex = errors.New("chunk index cannot be negative")

	// ErrInvalidChunkType indicates an unknown chunk classification.
	ErrInvalidChunkType = errors.New("invalid chunk type")

	// ErrInvalidArtifactType indicates an unknown queue artifact type.
	ErrInvalidArtifactType = errors.New("invalid artifact type")

	// ErrUnknownStage indicates a stage name that is not part of the sequence.
	ErrUnknownStage = errors.New("unknown stage")
)
