package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// monitor samples host resource pressure and the batch's rolling error count
// while a batch runs. Sampling failures are logged and never affect the
// batch; the monitor is the only long-lived background task and stops when
// its context is cancelled.
//
// Only CPU and memory utilisation are sampled; gopsutil exposes no
// accelerator metrics, so GPU/NPU pressure during embedding bursts is not
// visible here.
type monitor struct {
	interval time.Duration
	errors   *atomic.Int64
	logger   *slog.Logger
}

func newMonitor(interval time.Duration, errors *atomic.Int64, logger *slog.Logger) *monitor {
	return &monitor{
		interval: interval,
		errors:   errors,
		logger:   logger.With("component", "hardware-monitor"),
	}
}

// run samples until the context is cancelled.
func (m *monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *monitor) sample(ctx context.Context) {
	attrs := []any{"errors", m.errors.Load()}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		m.logger.Warn("cpu sample failed", "err", err)
	} else if len(percents) > 0 {
		attrs = append(attrs, "cpu_percent", percents[0])
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		m.logger.Warn("memory sample failed", "err", err)
	} else {
		attrs = append(attrs, "mem_percent", vm.UsedPercent)
	}

	m.logger.Info("batch resource sample", attrs...)
}
