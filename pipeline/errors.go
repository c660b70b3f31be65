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


package pipeline

import "errors"

// Sentinel errors for pipeline operations.
// Use errors.Is() to check for these errors.
var (
	// ErrProcessorNotFound means no processor is registered for a stage.
	ErrProcessorNotFound = errors.New("pipeline: no processor registered for stage")

	// ErrUploadFailed means the upload stage failed; no further stages are
	// attempted for the document.
	ErrUploadFailed = errors.New("pipeline: upload failed")

	// ErrEmptyContent means a document was submitted with no bytes.
	ErrEmptyContent = errors.New("pipeline: document content is empty")
)
