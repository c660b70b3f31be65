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

import "errors"

// Sentinel errors for object storage operations.
// Use errors.Is() to check for these errors.
var (
	// ErrNilClient indicates a store was constructed without a client.
	ErrNilClient = errors.New("objectstore: client is nil")

	// ErrBucketNotConfigured indicates no bucket covers a required class.
	ErrBucketNotConfigured = errors.New("objectstore: bucket not configured")

	// ErrUnknownBucketClass indicates an unrecognized bucket class.
	ErrUnknownBucketClass = errors.New("objectstore: unknown bucket class")

	// ErrEmptyContent indicates a put was attempted with zero bytes.
	ErrEmptyContent = errors.New("objectstore: content is empty")

	// ErrInvalidStoragePath indicates a storage path that is not of the
	// form "bucket/key".
	ErrInvalidStoragePath = errors.New("objectstore: invalid storage path")
)
