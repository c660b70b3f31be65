package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentClassifier determines the manufacturer, document type and covered
// models of a service manual from its text.
// Implementations must be thread-safe for concurrent use.
type DocumentClassifier interface {
	// ClassifyDocument analyzes document text and the original filename and
	// returns classification fields with a confidence score.
	// Returns an error if the inference call fails; a low-confidence result
	// is returned as data, not as an error.
	ClassifyDocument(ctx context.Context, text, filename string) (*Classification, error)
}

// ImageAnalyzer produces a structured description of an extracted image.
// Implementations must be thread-safe for concurrent use.
type ImageAnalyzer interface {
	// AnalyzeImage runs vision analysis over raw image bytes. The context
	// string carries surrounding document text to ground the description.
	AnalyzeImage(ctx context.Context, data []byte, contextText string) (*ImageAnalysis, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages the embedder, classifier and
// image analyzer, ensuring they share configuration appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Classifier returns the document classification service.
	// The returned DocumentClassifier is safe for concurrent use.
	Classifier() DocumentClassifier

	// ImageAnalyzer returns the vision analysis service.
	// The returned ImageAnalyzer is safe for concurrent use.
	ImageAnalyzer() ImageAnalyzer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
