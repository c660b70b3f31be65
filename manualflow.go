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


package manualflow

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/manualflow/ai"
	"github.com/poiesic/manualflow/ai/inference"
	"github.com/poiesic/manualflow/config"
	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/drain"
	"github.com/poiesic/manualflow/embedbatch"
	"github.com/poiesic/manualflow/objectstore"
	"github.com/poiesic/manualflow/pipeline"
	"github.com/poiesic/manualflow/scheduler"
	"github.com/poiesic/manualflow/storage"
	"github.com/poiesic/manualflow/storage/postgres"
)

// Engine wires the full ingestion system from a Config: relational store,
// object store, AI provider, stage registry, coordinator. Stage processors
// for the built-in capabilities (classification, storage drain, embedding,
// search indexing) are registered at construction; content-extraction
// processors are external collaborators bound by the embedding application
// through Register.
type Engine struct {
	cfg         *config.Config
	store       storage.Store
	objects     *objectstore.Store
	provider    ai.Provider
	registry    *pipeline.Registry
	coordinator *pipeline.Coordinator
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	store        storage.Store
	provider     ai.Provider
	objectClient objectstore.Client
	progress     io.Writer
	logger       *slog.Logger
}

// WithStore substitutes the relational store. Used by tests; the default
// opens a connection pool at the configured DSN.
func WithStore(s storage.Store) EngineOption {
	return func(o *engineOptions) {
		o.store = s
	}
}

// WithAIProvider substitutes the AI provider. Used by tests and offline
// runs; the default is the HTTP inference provider built from the config.
func WithAIProvider(p ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithObjectClient substitutes the object storage client. The default is a
// minio client built from the config.
func WithObjectClient(c objectstore.Client) EngineOption {
	return func(o *engineOptions) {
		o.objectClient = c
	}
}

// WithProgressWriter directs embedding progress reporting to w.
func WithProgressWriter(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithEngineLogger sets a custom logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine validates the config and constructs every collaborator.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	store := options.store
	if store == nil {
		var err error
		store, err = postgres.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening relational store: %w", err)
		}
	}

	objectClient := options.objectClient
	if objectClient == nil {
		var err error
		objectClient, err = objectstore.NewMinioClient(
			cfg.ObjectStore.Endpoint,
			cfg.ObjectStore.AccessKey,
			cfg.ObjectStore.SecretKey,
			cfg.ObjectStore.UseSSL,
		)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating object storage client: %w", err)
		}
	}

	objects, err := objectstore.NewStore(objectClient, objectstore.StoreConfig{
		Endpoint:         cfg.ObjectStore.Endpoint,
		DocumentBucket:   cfg.ObjectStore.DocumentBucket,
		ImageBucket:      cfg.ObjectStore.ImageBucket,
		SharedBucket:     cfg.ObjectStore.SharedBucket,
		UsePresignedURLs: cfg.ObjectStore.UsePresignedURLs,
		PresignExpiry:    cfg.ObjectStore.PresignExpiry,
		LegacyHashScan:   cfg.ObjectStore.LegacyHashScan,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = inference.NewProvider(ai.NewConfig(
			ai.WithInferenceHost(cfg.Inference.Host),
			ai.WithEmbeddingHost(cfg.Inference.EmbeddingHost),
			ai.WithEmbeddingModel(cfg.Inference.EmbeddingModel),
			ai.WithClassifierModel(cfg.Inference.ClassifierModel),
		))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
	}

	batcher, err := embedbatch.New(store.Embeddings(), store.Dedup(), provider.Embedder(), embedbatch.Config{
		ModelName:        cfg.Inference.EmbeddingModel,
		InitialBatchSize: cfg.Pipeline.EmbedBatchInitial,
		MinBatchSize:     cfg.Pipeline.EmbedBatchMin,
		MaxBatchSize:     cfg.Pipeline.EmbedBatchMax,
		Progress:         options.progress,
	})
	if err != nil {
		provider.Close()
		store.Close()
		return nil, fmt.Errorf("creating embedding batcher: %w", err)
	}

	registry := pipeline.NewRegistry()
	registry.Register(core.StageClassification, pipeline.NewClassificationProcessor(store, provider.Classifier()))
	registry.Register(core.StageStorage, pipeline.NewStorageProcessor(drain.New(store, objects)))
	registry.Register(core.StageEmbedding, pipeline.NewEmbeddingProcessor(store, batcher))
	registry.Register(core.StageSearchIndexing, pipeline.NewSearchIndexingProcessor(store))
	if !cfg.Features.EnableSVGExtraction {
		registry.Disable(core.StageSVGProcessing)
	}

	coordinator := pipeline.NewCoordinator(store, objects, registry,
		pipeline.WithForceContinueOnErrors(cfg.Pipeline.ForceContinueOnErrors),
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout),
	)

	return &Engine{
		cfg:         cfg,
		store:       store,
		objects:     objects,
		provider:    provider,
		registry:    registry,
		coordinator: coordinator,
		logger:      options.logger,
	}, nil
}

// Register binds an external stage processor, replacing any previous
// binding for that stage.
func (e *Engine) Register(stage core.Stage, p pipeline.Processor) {
	e.registry.Register(stage, p)
}

// Coordinator returns the pipeline coordinator.
func (e *Engine) Coordinator() *pipeline.Coordinator {
	return e.coordinator
}

// Store returns the relational store.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Objects returns the content-addressable object store.
func (e *Engine) Objects() *objectstore.Store {
	return e.objects
}

// Tracker returns the stage status tracker.
func (e *Engine) Tracker() *pipeline.StatusTracker {
	return e.coordinator.Tracker()
}

// NewScheduler creates a batch scheduler driving this engine's coordinator.
// The concurrency bound comes from the config unless overridden by opts.
func (e *Engine) NewScheduler(opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	base := []scheduler.Option{
		scheduler.WithConcurrency(e.cfg.Concurrency()),
		scheduler.WithLogger(e.logger),
	}
	if e.cfg.Pipeline.MonitorInterval > 0 {
		base = append(base, scheduler.WithMonitorInterval(e.cfg.Pipeline.MonitorInterval))
	}
	return scheduler.New(e.coordinator, append(base, opts...)...)
}

// Close releases the AI provider and the relational store connection.
func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing relational store", "err", err)
		return err
	}
	return nil
}
