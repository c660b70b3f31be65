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


// Package ai defines the interfaces for the model-backed services the
// ingestion pipeline depends on: text embedding, document classification,
// and image analysis.
//
// # Architecture
//
// The package is organized around three small interfaces (Embedder,
// DocumentClassifier, ImageAnalyzer) plus a Provider that bundles them.
// Concrete implementations live in subpackages:
//
//   - ai/inference: production implementation backed by an
//     OpenAI-compatible embedding API and an HTTP inference service
//   - ai/mock: deterministic in-memory implementations for testing
//
// # Constructor Return Type Pattern
//
// Public constructors in the subpackages return interface types from this
// package rather than concrete structs. Callers program against the
// interfaces, which keeps the pipeline code independent of which backend
// is wired in and makes every consumer trivially mockable.
//
// # Thread Safety
//
// All implementations of these interfaces must be safe for concurrent use.
// The pipeline scheduler calls them from multiple worker goroutines.
package ai
