// Package objectstore provides content-addressable binary storage on any
// S3-compatible backend.
//
// Objects are stored under keys derived from the SHA-256 of their bytes,
// so identical content always maps to the same key and duplicate uploads
// are detected with a single existence probe instead of a second transfer.
// Buckets follow a per-artifact-class convention (documents, images) with
// an optional shared bucket using class key prefixes.
//
// The Client interface abstracts the minio SDK so tests can run against an
// in-memory double.
package objectstore
