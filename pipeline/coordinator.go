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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/objectstore"
	"github.com/poiesic/manualflow/storage"
)

// StageFailure records one stage that failed during a run.
type StageFailure struct {
	Stage core.Stage
	Err   string
}

// Result is the outcome of one coordinator run over a document.
type Result struct {
	DocumentID core.ID
	Status     core.ProcessingStatus

	// Resumed is true when the document already existed and only missing
	// stages were attempted.
	Resumed bool

	// NoOp is true when zero stages were missing and no processor ran.
	NoOp bool

	Message         string
	CompletedStages []core.Stage
	FailedStages    []StageFailure

	// Quality is the advisory gate output; it never affects Status.
	Quality *GateResult

	Elapsed time.Duration
}

// Coordinator drives the stage sequence for one document at a time.
//
// Every submission attempts the upload first. When the upload detects a
// content-hash duplicate, the coordinator switches to smart resume: it
// computes the missing-stage set and runs only those, in the fixed order.
// Failure policy is configurable: with force-continue (the default) a stage
// failure is recorded and the sequence continues, and the document only
// fails outright when no attempted stage succeeded.
type Coordinator struct {
	store    storage.Store
	objects  *objectstore.Store
	registry *Registry
	tracker  *StatusTracker
	gate     *QualityGate

	forceContinue bool
	stageTimeout  time.Duration
	logger        *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithForceContinueOnErrors controls whether a stage failure aborts the
// remaining sequence. Defaults to true.
func WithForceContinueOnErrors(force bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.forceContinue = force
	}
}

// WithStageTimeout sets an explicit deadline per stage attempt. Zero
// disables the deadline and relies on the underlying clients' timeouts.
func WithStageTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.stageTimeout = d
	}
}

// NewCoordinator creates a coordinator over the given collaborators.
func NewCoordinator(store storage.Store, objects *objectstore.Store, registry *Registry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:         store,
		objects:       objects,
		registry:      registry,
		tracker:       NewStatusTracker(store),
		gate:          NewQualityGate(store),
		forceContinue: true,
		stageTimeout:  5 * time.Minute,
		logger:        slog.Default().With("component", "coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker exposes the coordinator's status tracker for status queries.
func (c *Coordinator) Tracker() *StatusTracker {
	return c.tracker
}

// Ingest submits one document's bytes to the pipeline.
//
// Upload failures are fatal for the document: no stages are attempted and
// an error is returned. After a successful upload, stage failures are
// converted to data on the Result per the failure policy.
func (c *Coordinator) Ingest(ctx context.Context, filename string, content []byte) (*Result, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	startedAt := time.Now()

	put, err := c.objects.Put(ctx, content, filename, objectstore.ClassDocument, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if existingID, ok, err := c.store.Dedup().DocumentIDByHash(ctx, put.ContentHash); err != nil {
		return nil, fmt.Errorf("%w: duplicate lookup: %v", ErrUploadFailed, err)
	} else if ok {
		c.logger.Info("duplicate content detected, resuming",
			"document_id", existingID, "content_hash", put.ContentHash)
		return c.resume(ctx, existingID, startedAt)
	}

	doc := &core.Document{
		Filename:         filename,
		ContentHash:      put.ContentHash,
		ProcessingStatus: core.StatusProcessing,
		StoragePath:      put.StoragePath,
		StageStatus:      core.BoolMap{core.StageUpload.String(): true},
	}
	if err := c.store.Documents().CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Concurrent submission of the same bytes won the insert race.
			if id, ok, lookupErr := c.store.Dedup().DocumentIDByHash(ctx, put.ContentHash); lookupErr == nil && ok {
				return c.resume(ctx, id, startedAt)
			}
		}
		return nil, fmt.Errorf("%w: creating document: %v", ErrUploadFailed, err)
	}

	c.logger.Info("new document created", "document_id", doc.ID, "filename", filename)
	return c.runStages(ctx, doc, core.AllStages()[1:], false, startedAt)
}

// resume runs only the stages still missing for an existing document.
func (c *Coordinator) resume(ctx context.Context, docID core.ID, startedAt time.Time) (*Result, error) {
	doc, err := c.store.Documents().GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading document for resume: %w", err)
	}

	missing, err := c.tracker.MissingStages(ctx, docID, c.registry)
	if err != nil {
		return nil, fmt.Errorf("computing missing stages: %w", err)
	}

	if len(missing) == 0 {
		c.logger.Info("nothing to do", "document_id", docID)
		return &Result{
			DocumentID: docID,
			Status:     doc.ProcessingStatus,
			Resumed:    true,
			NoOp:       true,
			Message:    "All stages already completed",
			Elapsed:    time.Since(startedAt),
		}, nil
	}

	result, err := c.runStages(ctx, doc, missing, true, startedAt)
	return result, err
}

// ProcessMissing re-enters the pipeline for a known document and runs only
// its missing stages.
func (c *Coordinator) ProcessMissing(ctx context.Context, docID core.ID) (*Result, error) {
	return c.resume(ctx, docID, time.Now())
}

// ProcessStages runs an explicit stage list for a known document, ignoring
// completion flags. Used by operators to force a re-run of specific stages.
func (c *Coordinator) ProcessStages(ctx context.Context, docID core.ID, stages []core.Stage) (*Result, error) {
	doc, err := c.store.Documents().GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return c.runStages(ctx, doc, stages, true, time.Now())
}

// runStages executes the given stages in order, applies the failure policy,
// finalizes the document's status, and scores the result.
func (c *Coordinator) runStages(ctx context.Context, doc *core.Document, stages []core.Stage, resumed bool, startedAt time.Time) (*Result, error) {
	result := &Result{
		DocumentID: doc.ID,
		Resumed:    resumed,
	}

	for _, stage := range stages {
		if stage == core.StageUpload {
			continue
		}
		if !c.registry.Enabled(stage) {
			c.logger.Debug("stage disabled, skipping", "stage", stage)
			continue
		}

		proc, err := c.registry.ProcessorFor(stage)
		if err != nil {
			result.FailedStages = append(result.FailedStages, StageFailure{Stage: stage, Err: err.Error()})
			if !c.forceContinue {
				break
			}
			continue
		}

		c.logger.Info("running stage", "document_id", doc.ID, "stage", stage)
		if err := c.runStage(ctx, proc, doc); err != nil {
			c.logger.Warn("stage failed", "document_id", doc.ID, "stage", stage, "err", err)
			result.FailedStages = append(result.FailedStages, StageFailure{Stage: stage, Err: err.Error()})
			if !c.forceContinue {
				break
			}
			continue
		}

		result.CompletedStages = append(result.CompletedStages, stage)
		if err := c.store.Documents().SetStageComplete(ctx, doc.ID, stage, true); err != nil {
			c.logger.Warn("failed to persist stage completion", "document_id", doc.ID, "stage", stage, "err", err)
		}
	}

	c.finalize(ctx, doc.ID, result)

	// The gate runs after the stage loop regardless of failures and never
	// changes the status determination.
	if gateResult, err := c.gate.Score(ctx, doc.ID); err != nil {
		c.logger.Warn("quality gate failed", "document_id", doc.ID, "err", err)
	} else {
		result.Quality = gateResult
	}

	result.Elapsed = time.Since(startedAt)
	return result, nil
}

// runStage invokes one processor under the per-stage deadline.
func (c *Coordinator) runStage(ctx context.Context, proc Processor, doc *core.Document) error {
	if c.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.stageTimeout)
		defer cancel()
	}
	return proc.Process(ctx, doc)
}

// finalize persists the document's terminal status. A document fails only
// when zero attempted stages succeeded; any success marks it completed with
// the failed stages retained for audit.
func (c *Coordinator) finalize(ctx context.Context, docID core.ID, result *Result) {
	status := core.StatusCompleted
	if len(result.CompletedStages) == 0 && len(result.FailedStages) > 0 {
		status = core.StatusFailed
	}
	result.Status = status

	switch {
	case len(result.FailedStages) == 0:
		result.Message = fmt.Sprintf("Completed %d stages", len(result.CompletedStages))
	case status == core.StatusCompleted:
		result.Message = fmt.Sprintf("Completed %d stages, %d failed", len(result.CompletedStages), len(result.FailedStages))
	default:
		result.Message = fmt.Sprintf("All %d attempted stages failed", len(result.FailedStages))
	}

	failedNames := make(core.StringList, 0, len(result.FailedStages))
	for _, f := range result.FailedStages {
		failedNames = append(failedNames, f.Stage.String())
	}

	// Refetch so the update does not clobber stage flags written during
	// the run.
	doc, err := c.store.Documents().GetDocument(ctx, docID)
	if err != nil {
		c.logger.Warn("failed to reload document for finalize", "document_id", docID, "err", err)
		return
	}
	doc.ProcessingStatus = status
	doc.FailedStages = failedNames
	if err := c.store.Documents().UpdateDocument(ctx, doc); err != nil {
		c.logger.Warn("failed to persist final status", "document_id", docID, "err", err)
	}
}
