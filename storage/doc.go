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


// Package storage provides the storage abstraction layer for manualflow.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline logic. It allows different relational backends
// (PostgreSQL, in-memory SQLite for tests) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction:
//
//	store, err := postgres.Open(dsn)  // returns storage.Store interface
//
// This design decision prioritizes:
//   - Abstraction: Prevents accidental coupling to one database's specifics
//   - Swappability: Easy to add alternative backends
//   - Testing: Consumers can use mock implementations without modification
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Store: aggregate handle over all repositories
//   - DocumentRepository, ChunkRepository, ImageRepository,
//     EmbeddingRepository, LinkRepository, VideoRepository: per-entity CRUD
//   - QueueRepository: write-ahead staging records for the storage drain
//   - DedupIndex: existence checks by hash or natural key, used to avoid
//     recreating records on re-runs
package storage
