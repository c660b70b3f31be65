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


// Package inference provides AI service implementations backed by a local
// inference service and an OpenAI-compatible embedding API.
//
// Embeddings use the langchaingo library to talk to any OpenAI-compatible
// service (Ollama, LocalAI, vLLM). Document classification and image
// analysis use the ingestion stack's own inference service, which exposes
// JSON routes (/classify-document, /analyze-image) in front of its
// classifier and vision models.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithInferenceHost("http://localhost:8000"),
//	    ai.WithEmbeddingHost("http://localhost:11434"),  // /v1 added automatically
//	)
//
//	provider, err := inference.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "torque the drain plug to 35 Nm")
//	cls, err := provider.Classifier().ClassifyDocument(ctx, sample, "kubota_l3301_wsm.pdf")
package inference
