package report

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/stratalake/dqguard/config"
)

// ResourceStats is an advisory snapshot of host resource usage at summary
// time. The configured limits are not enforced; readings above them only
// add warnings.
type ResourceStats struct {
	MemoryUsedMB  float64  `json:"memory_used_mb"`
	MemoryTotalMB float64  `json:"memory_total_mb"`
	MemoryPercent float64  `json:"memory_percent"`
	CPUPercent    float64  `json:"cpu_percent"`
	Warnings      []string `json:"warnings,omitempty"`
}

// SnapshotResources reads current memory and CPU usage and checks them
// against the advisory limits. Read failures degrade to zero readings;
// the snapshot never fails a cycle.
func SnapshotResources(cfg config.ResourceConfig, log *zap.SugaredLogger) ResourceStats {
	var stats ResourceStats

	if v, err := mem.VirtualMemory(); err != nil {
		if log != nil {
			log.Warnw("Failed to read memory stats", "error", err)
		}
	} else if v.Total > 0 {
		stats.MemoryTotalMB = float64(v.Total) / 1024 / 1024
		stats.MemoryUsedMB = float64(v.Total-v.Available) / 1024 / 1024
		stats.MemoryPercent = stats.MemoryUsedMB / stats.MemoryTotalMB * 100
	}

	if percents, err := cpu.Percent(0, false); err != nil {
		if log != nil {
			log.Warnw("Failed to read CPU stats", "error", err)
		}
	} else if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	if cfg.MaxMemoryMB > 0 && stats.MemoryUsedMB > float64(cfg.MaxMemoryMB) {
		stats.Warnings = append(stats.Warnings, fmt.Sprintf(
			"memory usage %.0fMB exceeds advisory limit %dMB", stats.MemoryUsedMB, cfg.MaxMemoryMB))
		if log != nil {
			log.Warnw("Advisory memory limit exceeded",
				"used_mb", stats.MemoryUsedMB,
				"limit_mb", cfg.MaxMemoryMB)
		}
	}
	if cfg.MaxCPUPercent > 0 && stats.CPUPercent > cfg.MaxCPUPercent {
		stats.Warnings = append(stats.Warnings, fmt.Sprintf(
			"CPU usage %.0f%% exceeds advisory limit %.0f%%", stats.CPUPercent, cfg.MaxCPUPercent))
		if log != nil {
			log.Warnw("Advisory CPU limit exceeded",
				"cpu_percent", stats.CPUPercent,
				"limit_percent", cfg.MaxCPUPercent)
		}
	}
	return stats
}
