// Package drain persists staged pipeline artifacts from the write-ahead
// processing queue into their final stores.
//
// Upstream stages enqueue serialized artifacts (links, videos, chunks,
// embeddings, images) instead of writing them directly; the storage stage
// drains the queue per document, dispatching each item by artifact type.
// Image bytes additionally route through the content-addressable object
// store before their row is written.
//
// The drain is deliberately tolerant: malformed payloads and per-item
// storage failures are recorded and skipped rather than aborting the run,
// and a document with no pending items drains successfully with a zero
// count.
package drain
