package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/pipeline"
)

type fakeRunner struct {
	mu      sync.Mutex
	ingests []string

	active    atomic.Int64
	maxActive atomic.Int64

	delay time.Duration
	fail  func(filename string) error
	panic func(filename string) bool
}

func (f *fakeRunner) Ingest(ctx context.Context, filename string, content []byte) (*pipeline.Result, error) {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxActive.Load()
		if cur <= max || f.maxActive.CompareAndSwap(max, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.ingests = append(f.ingests, filename)
	f.mu.Unlock()

	if f.panic != nil && f.panic(filename) {
		panic("runner exploded on " + filename)
	}
	if f.fail != nil {
		if err := f.fail(filename); err != nil {
			return nil, err
		}
	}
	return &pipeline.Result{Status: core.StatusCompleted}, nil
}

func writeBatchFiles(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("manual-%02d.pdf", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("content %d", i)), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNewRejectsInvalidConcurrency(t *testing.T) {
	_, err := New(&fakeRunner{}, WithConcurrency(0))
	require.Error(t, err)
}

func TestProcessBatchAllSuccessful(t *testing.T) {
	runner := &fakeRunner{}
	sched, err := New(runner, WithConcurrency(2), WithLogger(slog.Default()))
	require.NoError(t, err)
	defer sched.Release()

	paths := writeBatchFiles(t, 5)
	batch, err := sched.ProcessBatch(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, 5, batch.TotalFiles)
	assert.Len(t, batch.Successful, 5)
	assert.Empty(t, batch.Failed)
	assert.InDelta(t, 100.0, batch.SuccessRate(), 0.001)
	assert.Equal(t, 2, batch.Concurrency)
	assert.Len(t, runner.ingests, 5)
}

func TestProcessBatchNeverExceedsConcurrencyBound(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	sched, err := New(runner, WithConcurrency(3))
	require.NoError(t, err)
	defer sched.Release()

	paths := writeBatchFiles(t, 12)
	batch, err := sched.ProcessBatch(context.Background(), paths)
	require.NoError(t, err)

	assert.Len(t, batch.Successful, 12)
	assert.LessOrEqual(t, runner.maxActive.Load(), int64(3))
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	runner := &fakeRunner{
		fail: func(filename string) error {
			if filename == "manual-02.pdf" {
				return fmt.Errorf("corrupt archive")
			}
			return nil
		},
	}
	sched, err := New(runner, WithConcurrency(2))
	require.NoError(t, err)
	defer sched.Release()

	paths := writeBatchFiles(t, 4)
	batch, err := sched.ProcessBatch(context.Background(), paths)
	require.NoError(t, err)

	assert.Len(t, batch.Successful, 3)
	require.Len(t, batch.Failed, 1)
	assert.Contains(t, batch.Failed[0].Err.Error(), "corrupt archive")
	assert.InDelta(t, 75.0, batch.SuccessRate(), 0.001)
}

func TestProcessBatchRecoversPanics(t *testing.T) {
	runner := &fakeRunner{
		panic: func(filename string) bool { return filename == "manual-01.pdf" },
	}
	sched, err := New(runner, WithConcurrency(2))
	require.NoError(t, err)
	defer sched.Release()

	paths := writeBatchFiles(t, 3)
	batch, err := sched.ProcessBatch(context.Background(), paths)
	require.NoError(t, err)

	assert.Len(t, batch.Successful, 2)
	require.Len(t, batch.Failed, 1)
	assert.Contains(t, batch.Failed[0].Err.Error(), "panic")
}

func TestProcessBatchRecordsUnreadableFiles(t *testing.T) {
	runner := &fakeRunner{}
	sched, err := New(runner, WithConcurrency(2))
	require.NoError(t, err)
	defer sched.Release()

	paths := writeBatchFiles(t, 2)
	paths = append(paths, filepath.Join(t.TempDir(), "does-not-exist.pdf"))

	batch, err := sched.ProcessBatch(context.Background(), paths)
	require.NoError(t, err)

	assert.Len(t, batch.Successful, 2)
	require.Len(t, batch.Failed, 1)
	assert.Contains(t, batch.Failed[0].Err.Error(), "reading file")
	assert.Len(t, runner.ingests, 2)
}

func TestProcessBatchEmpty(t *testing.T) {
	sched, err := New(&fakeRunner{}, WithConcurrency(2))
	require.NoError(t, err)
	defer sched.Release()

	batch, err := sched.ProcessBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, batch.TotalFiles)
	assert.Zero(t, batch.SuccessRate())
}

func TestDefaultConcurrencyFromHost(t *testing.T) {
	sched, err := New(&fakeRunner{})
	require.NoError(t, err)
	defer sched.Release()
	assert.GreaterOrEqual(t, sched.Concurrency(), 4)
}
