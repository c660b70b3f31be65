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


package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketClass identifies which artifact class an object belongs to.
// Each class maps to a bucket and a key prefix; the prefix is empty when
// the bucket is dedicated to that class and non-empty when a bucket is
// shared across classes, to keep keys from colliding.
type BucketClass string

const (
	ClassDocument BucketClass = "document"
	ClassImage    BucketClass = "image"
)

// PutResult describes the outcome of a content-addressed write.
type PutResult struct {
	// StoragePath is the bucket-qualified key of the stored object.
	StoragePath string

	// PublicURL is the long-lived URL derived from the endpoint and key.
	PublicURL string

	// PresignedURL is a time-limited URL, set only when presigned URLs
	// are enabled on the store.
	PresignedURL string

	// ContentHash is the SHA-256 hex digest of the object bytes.
	ContentHash string

	// IsDuplicate reports whether an object with the same content already
	// existed and no physical write was performed.
	IsDuplicate bool
}

// StoreConfig configures a content-addressable store.
type StoreConfig struct {
	// Endpoint is the S3 endpoint, used to build public URLs.
	// Example: "http://localhost:9000"
	Endpoint string

	// DocumentBucket and ImageBucket are the per-class buckets. When a
	// class has no dedicated bucket, SharedBucket is used with a class
	// key prefix.
	DocumentBucket string
	ImageBucket    string
	SharedBucket   string

	// UsePresignedURLs selects presigned URLs for read access. When
	// false, callers should use the public URL and rely on bucket policy.
	UsePresignedURLs bool

	// PresignExpiry bounds how long a presigned URL stays valid.
	// Defaults to 1 hour when zero.
	PresignExpiry time.Duration

	// LegacyHashScan enables the metadata-scan fallback for objects
	// written under a pre-hash key layout. The scan is linear in bucket
	// size and exists only for migration compatibility.
	LegacyHashScan bool
}

// Store is a content-addressable object store. Objects are keyed by the
// SHA-256 of their bytes so identical content always lands on the same key,
// which makes duplicate detection a single existence probe.
type Store struct {
	client Client
	config StoreConfig
	logger *slog.Logger
}

// NewStore creates a content-addressable store over the given client.
func NewStore(client Client, config StoreConfig) (*Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if config.DocumentBucket == "" && config.SharedBucket == "" {
		return nil, fmt.Errorf("%w: no document bucket configured", ErrBucketNotConfigured)
	}
	if config.ImageBucket == "" && config.SharedBucket == "" {
		return nil, fmt.Errorf("%w: no image bucket configured", ErrBucketNotConfigured)
	}
	if config.PresignExpiry == 0 {
		config.PresignExpiry = time.Hour
	}

	return &Store{
		client: client,
		config: config,
		logger: slog.Default().With("component", "objectstore"),
	}, nil
}

// HashContent returns the SHA-256 hex digest used as the content identity.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// bucketFor resolves a class to its bucket and key prefix.
func (s *Store) bucketFor(class BucketClass) (bucket, prefix string, err error) {
	switch class {
	case ClassDocument:
		if s.config.DocumentBucket != "" {
			return s.config.DocumentBucket, "", nil
		}
		return s.config.SharedBucket, "doc/", nil
	case ClassImage:
		if s.config.ImageBucket != "" {
			return s.config.ImageBucket, "", nil
		}
		return s.config.SharedBucket, "img/", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownBucketClass, class)
	}
}

// objectKey derives the deterministic storage key for content.
func objectKey(prefix, contentHash, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return prefix + contentHash + ext
}

// Put stores content under its hash-derived key. If an object with the same
// content already exists, the existing object is returned with IsDuplicate
// set and no bytes are transferred.
func (s *Store) Put(ctx context.Context, content []byte, filename string, class BucketClass, metadata map[string]string) (*PutResult, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}

	bucket, prefix, err := s.bucketFor(class)
	if err != nil {
		return nil, err
	}

	contentHash := HashContent(content)
	key := objectKey(prefix, contentHash, filename)

	// Cheap duplicate probe: identical content always maps to this key.
	_, statErr := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if statErr == nil {
		s.logger.Debug("duplicate content detected", "bucket", bucket, "key", key)
		return s.result(ctx, bucket, key, contentHash, true)
	}
	if !isNotFound(statErr) {
		return nil, fmt.Errorf("probing for existing object: %w", statErr)
	}

	// The key probe found nothing. Objects written before hash-derived
	// keys were adopted live under arbitrary keys and are only findable
	// by their content_hash metadata, so optionally scan for them.
	if s.config.LegacyHashScan {
		legacyKey, found, scanErr := s.scanForHash(ctx, bucket, prefix, contentHash)
		if scanErr != nil {
			// Lookup failures fall through to a normal write rather
			// than failing the stage.
			s.logger.Warn("legacy hash scan failed", "bucket", bucket, "err", scanErr)
		} else if found {
			s.logger.Debug("duplicate found via legacy scan", "bucket", bucket, "key", legacyKey)
			return s.result(ctx, bucket, legacyKey, contentHash, true)
		}
	}

	userMeta := map[string]string{
		"content_hash":      contentHash,
		"original_filename": filename,
		"upload_timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		userMeta[k] = v
	}

	_, err = s.client.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  contentTypeFor(filename),
		UserMetadata: userMeta,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading object: %w", err)
	}

	s.logger.Info("stored object", "bucket", bucket, "key", key, "bytes", len(content))
	return s.result(ctx, bucket, key, contentHash, false)
}

// Get retrieves an object by its storage path ("bucket/key").
func (s *Store) Get(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	bucket, key, ok := strings.Cut(storagePath, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoragePath, storagePath)
	}
	return s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

// Exists reports whether content with the given hash is already stored
// under the class's hash-derived key layout.
func (s *Store) Exists(ctx context.Context, contentHash, filename string, class BucketClass) (bool, error) {
	bucket, prefix, err := s.bucketFor(class)
	if err != nil {
		return false, err
	}

	_, statErr := s.client.StatObject(ctx, bucket, objectKey(prefix, contentHash, filename), minio.StatObjectOptions{})
	if statErr == nil {
		return true, nil
	}
	if isNotFound(statErr) {
		return false, nil
	}
	return false, statErr
}

// scanForHash walks the bucket listing looking for an object whose
// content_hash metadata matches. O(n) in bucket size.
func (s *Store) scanForHash(ctx context.Context, bucket, prefix, contentHash string) (key string, found bool, err error) {
	for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if info.Err != nil {
			return "", false, info.Err
		}
		if metaHash(info) == contentHash {
			return info.Key, true, nil
		}
	}
	return "", false, nil
}

// metaHash extracts the content_hash user metadata from a listing entry.
// S3 listings surface user metadata under the X-Amz-Meta- header prefix.
func metaHash(info minio.ObjectInfo) string {
	for k, v := range info.UserMetadata {
		if strings.EqualFold(k, "X-Amz-Meta-Content_hash") || strings.EqualFold(k, "content_hash") {
			return v
		}
	}
	return ""
}

// result assembles a PutResult for an object known to exist at bucket/key.
func (s *Store) result(ctx context.Context, bucket, key, contentHash string, duplicate bool) (*PutResult, error) {
	res := &PutResult{
		StoragePath: bucket + "/" + key,
		PublicURL:   strings.TrimSuffix(s.config.Endpoint, "/") + "/" + bucket + "/" + key,
		ContentHash: contentHash,
		IsDuplicate: duplicate,
	}

	if s.config.UsePresignedURLs {
		u, err := s.client.PresignedGetObject(ctx, bucket, key, s.config.PresignExpiry, nil)
		if err != nil {
			return nil, fmt.Errorf("generating presigned URL: %w", err)
		}
		res.PresignedURL = u.String()
	}

	return res, nil
}

// URL returns the preferred read URL for a result, honoring the presigned
// URL configuration.
func (s *Store) URL(res *PutResult) string {
	if s.config.UsePresignedURLs && res.PresignedURL != "" {
		return res.PresignedURL
	}
	return res.PublicURL
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
