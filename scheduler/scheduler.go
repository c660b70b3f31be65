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


package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/manualflow/config"
	"github.com/poiesic/manualflow/pipeline"
)

// Runner processes one document submission. *pipeline.Coordinator satisfies
// this; tests substitute their own.
type Runner interface {
	Ingest(ctx context.Context, filename string, content []byte) (*pipeline.Result, error)
}

// FileResult pairs one batch file with its outcome.
type FileResult struct {
	Path   string
	Result *pipeline.Result
	Err    error
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	Successful  []FileResult
	Failed      []FileResult
	TotalFiles  int
	Elapsed     time.Duration
	Concurrency int
}

// SuccessRate returns the percentage of files that processed successfully.
func (r *BatchResult) SuccessRate() float64 {
	if r.TotalFiles == 0 {
		return 0
	}
	return float64(len(r.Successful)) / float64(r.TotalFiles) * 100
}

// Scheduler bounds document-level parallelism for batch ingestion.
//
// Every file of a batch is submitted immediately; the worker pool acts as
// the counting semaphore, so at most the configured bound of documents are
// mid-pipeline at once. Per-document panics and errors are converted into
// failure records so one bad document never aborts batch collection. A
// background monitor samples host resources while the batch runs and stops
// once all document tasks settle.
type Scheduler struct {
	runner          Runner
	pool            *ants.Pool
	concurrency     int
	monitorInterval time.Duration
	errorCount      atomic.Int64
	logger          *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithConcurrency sets the maximum number of documents processed at once.
// Default is max(4, ceil(0.75 x host CPU count)).
func WithConcurrency(n int) Option {
	return func(s *Scheduler) error {
		if n < 1 {
			return fmt.Errorf("scheduler: concurrency must be at least 1, got %d", n)
		}
		s.concurrency = n
		return nil
	}
}

// WithMonitorInterval sets how often the hardware monitor samples.
// Default is 5 seconds.
func WithMonitorInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("scheduler: monitor interval must be positive")
		}
		s.monitorInterval = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a scheduler delegating per-document work to the runner.
func New(runner Runner, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler: runner is required")
	}

	s := &Scheduler{
		runner:          runner,
		concurrency:     config.DefaultConcurrency(runtime.NumCPU()),
		monitorInterval: 5 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	s.pool = pool
	s.logger = s.logger.With("component", "scheduler")

	return s, nil
}

// Concurrency returns the configured parallelism bound.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// Release frees the worker pool. The scheduler cannot be used afterwards.
func (s *Scheduler) Release() {
	s.pool.Release()
}

// ProcessBatch ingests every file of the batch under the concurrency bound
// and gathers per-file outcomes. The returned error covers only submission
// level problems; per-document failures are data on the BatchResult.
func (s *Scheduler) ProcessBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	startedAt := time.Now()
	s.errorCount.Store(0)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go newMonitor(s.monitorInterval, &s.errorCount, s.logger).run(monitorCtx)

	results := make([]FileResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)

		err := s.pool.Submit(func() {
			defer wg.Done()
			results[i] = s.processOne(ctx, path)
			if results[i].Err != nil {
				s.errorCount.Add(1)
			}
		})
		if err != nil {
			wg.Done()
			results[i] = FileResult{Path: path, Err: fmt.Errorf("submitting task: %w", err)}
			s.errorCount.Add(1)
		}
	}

	wg.Wait()
	stopMonitor()

	batch := &BatchResult{
		TotalFiles:  len(paths),
		Elapsed:     time.Since(startedAt),
		Concurrency: s.concurrency,
	}
	for _, r := range results {
		if r.Err != nil {
			batch.Failed = append(batch.Failed, r)
		} else {
			batch.Successful = append(batch.Successful, r)
		}
	}

	s.logger.Info("batch finished",
		"total", batch.TotalFiles,
		"successful", len(batch.Successful),
		"failed", len(batch.Failed),
		"success_rate", fmt.Sprintf("%.1f%%", batch.SuccessRate()),
		"concurrency", batch.Concurrency,
		"elapsed", batch.Elapsed)
	return batch, nil
}

// processOne runs a single document task. Panics are captured at this
// boundary and converted into failure records.
func (s *Scheduler) processOne(ctx context.Context, path string) (result FileResult) {
	result.Path = path
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("document task panicked", "path", path, "panic", r)
			result.Err = fmt.Errorf("panic while processing %s: %v", path, r)
		}
	}()

	content, err := os.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("reading file: %w", err)
		return result
	}

	res, err := s.runner.Ingest(ctx, filepath.Base(path), content)
	result.Result = res
	result.Err = err
	return result
}
