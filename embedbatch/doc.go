// Package embedbatch generates vector embeddings for document chunks in
// adaptively sized batches.
//
// The batcher skips chunks that already have an embedding for the configured
// model, so re-runs after a partial failure never duplicate rows. Batch size
// follows a latency feedback loop: each batch's round-trip time against the
// embedding service moves the size one step up or down within configured
// bounds, converging on the service's sweet spot without manual tuning.
//
// The package also provides retry with exponential backoff, progress
// reporting, and vector normalization for cosine similarity compatibility.
package embedbatch
