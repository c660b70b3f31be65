package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				ID:          NewID(),
				Filename:    "manual.pdf",
				ContentHash: "ab12cd34",
			},
			wantErr: nil,
		},
		{
			name: "valid document without classification",
			doc: &Document{
				Filename:     "manual.pdf",
				ContentHash:  "ab12cd34",
				Manufacturer: "",
				DocType:      "",
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty filename",
			doc: &Document{
				ContentHash: "ab12cd34",
			},
			wantErr: ErrEmptyFilename,
		},
		{
			name: "empty content hash",
			doc: &Document{
				Filename: "manual.pdf",
			},
			wantErr: ErrEmptyContentHash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	docID := NewID()

	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{DocumentID: docID, ChunkIndex: 0, ChunkType: ChunkTypeText},
			wantErr: nil,
		},
		{
			name:    "valid chunk without type",
			chunk:   &Chunk{DocumentID: docID, ChunkIndex: 3},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "missing document id",
			chunk:   &Chunk{ChunkIndex: 0},
			wantErr: ErrEmptyDocumentID,
		},
		{
			name:    "negative index",
			chunk:   &Chunk{DocumentID: docID, ChunkIndex: -1},
			wantErr: ErrNegativeChunkIndex,
		},
		{
			name:    "unknown chunk type",
			chunk:   &Chunk{DocumentID: docID, ChunkIndex: 0, ChunkType: "poetry"},
			wantErr: ErrInvalidChunkType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQueueItem(t *testing.T) {
	docID := NewID()

	tests := []struct {
		name    string
		item    *QueueItem
		wantErr error
	}{
		{
			name:    "valid item",
			item:    &QueueItem{DocumentID: docID, ArtifactType: ArtifactTypeLink},
			wantErr: nil,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrInvalidQueueItem,
		},
		{
			name:    "missing document id",
			item:    &QueueItem{ArtifactType: ArtifactTypeChunk},
			wantErr: ErrEmptyDocumentID,
		},
		{
			name:    "unknown artifact type",
			item:    &QueueItem{DocumentID: docID, ArtifactType: "blob"},
			wantErr: ErrInvalidArtifactType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQueueItem(tt.item)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateQueueItem() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQueueItem() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
