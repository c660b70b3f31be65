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


// Package pipeline drives documents through the fixed 15-stage ingestion
// sequence.
//
// # Architecture
//
// The Registry maps each stage to a Processor. The Coordinator runs the
// sequence for one document: upload first, then either every remaining
// stage (new content) or only the missing ones (smart resume after a
// content-hash duplicate). The StatusTracker computes stage completion by
// merging the persisted status map with signals derived from artifact
// presence, and the QualityGate attaches an advisory completeness score to
// every run.
//
// # Failure policy
//
// With force-continue (the default), a stage failure is recorded and the
// sequence keeps going; the document is marked failed only when zero
// attempted stages succeeded. Without it, the coordinator halts at the
// first failure. Either way the quality gate runs and its output never
// changes the determination.
//
// # Stage processors
//
// Stages whose logic lives in this module (classification, storage drain,
// embedding, search indexing) have built-in processors. Content extraction
// stages are external collaborators and are registered by the caller.
package pipeline
