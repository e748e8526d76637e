package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"sentinel/internal/models"
)

// HostMetrics reads CPU, memory and disk utilisation of the local host.
type HostMetrics struct {
	diskPath string
	now      func() time.Time

	// Collection functions, swapped in tests
	getCPUPercent func(context.Context, time.Duration, bool) ([]float64, error)
	getMemStats   func(context.Context) (*mem.VirtualMemoryStat, error)
	getDiskUsage  func(context.Context, string) (*disk.UsageStat, error)
}

// NewHostMetrics creates a metric source reporting disk usage of diskPath
func NewHostMetrics(diskPath string) *HostMetrics {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostMetrics{
		diskPath:      diskPath,
		now:           time.Now,
		getCPUPercent: cpu.PercentWithContext,
		getMemStats:   mem.VirtualMemoryWithContext,
		getDiskUsage:  disk.UsageWithContext,
	}
}

// CurrentMetrics collects one snapshot. CPU usage is measured since the
// previous call, so the first reading covers the time since boot.
func (h *HostMetrics) CurrentMetrics(ctx context.Context) (models.MetricSnapshot, error) {
	percents, err := h.getCPUPercent(ctx, 0, false)
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("collect cpu usage: %w", err)
	}
	if len(percents) == 0 {
		return models.MetricSnapshot{}, fmt.Errorf("collect cpu usage: no samples")
	}

	vm, err := h.getMemStats(ctx)
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("collect memory usage: %w", err)
	}

	du, err := h.getDiskUsage(ctx, h.diskPath)
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("collect disk usage of %s: %w", h.diskPath, err)
	}

	return models.MetricSnapshot{
		CPUUsage:    percents[0],
		MemoryUsage: vm.UsedPercent,
		DiskUsage:   du.UsedPercent,
		CollectedAt: h.now(),
	}, nil
}
