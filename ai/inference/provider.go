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


package inference

import (
	"log/slog"

	"github.com/poiesic/manualflow/ai"
)

// Provider implements ai.Provider using the inference service and an
// OpenAI-compatible embedding API. It manages embedder, classifier, and
// analyzer instances.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	classifier *Classifier
	analyzer   *Analyzer
	logger     *slog.Logger
}

// NewProvider creates a new AI provider backed by the inference service.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create embedder (using internal constructor for concrete type)
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	classifier, err := newClassifier(config)
	if err != nil {
		return nil, err
	}

	analyzer, err := newAnalyzer(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		embedder:   embedder,
		classifier: classifier,
		analyzer:   analyzer,
		logger:     slog.Default().With("component", "inference-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Classifier returns the document classification service.
func (p *Provider) Classifier() ai.DocumentClassifier {
	return p.classifier
}

// ImageAnalyzer returns the image analysis service.
func (p *Provider) ImageAnalyzer() ai.ImageAnalyzer {
	return p.analyzer
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing inference provider")
	return nil
}
