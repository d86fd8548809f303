package startup

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
)

// DefaultMemoryRatio is the fraction of the container memory limit
// handed to the Go heap. The remainder covers cgo allocations (libvips
// pixel buffers live outside the Go heap) and child processes.
const DefaultMemoryRatio = 0.85

// MemoryConfig describes how the Go soft memory limit was derived.
type MemoryConfig struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureMemory derives and applies the Go soft memory limit. A set
// GOMEMLIMIT wins because the runtime already honors it; otherwise
// MEMORY_LIMIT (the container's limit in bytes) scaled by MEMORY_RATIO
// is applied via debug.SetMemoryLimit. Decoded bitmaps dominate this
// process's allocations, so running a container limit without a heap
// ceiling invites the OOM killer.
func ConfigureMemory() MemoryConfig {
	if v := os.Getenv("GOMEMLIMIT"); v != "" {
		return MemoryConfig{
			Configured: true,
			Source:     "GOMEMLIMIT",
			GoMemLimit: debug.SetMemoryLimit(-1),
		}
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		return MemoryConfig{}
	}

	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT value %q, no memory limit applied", raw)
		return MemoryConfig{}
	}

	ratio := getEnvFloat("MEMORY_RATIO", DefaultMemoryRatio)
	if ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %v out of range (0, 1], using default: %v", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	goLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goLimit)

	return MemoryConfig{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

// LogMemoryConfig logs the applied memory configuration
func LogMemoryConfig(mc MemoryConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !mc.Configured {
		logging.Info("  No memory limit configured (set MEMORY_LIMIT or GOMEMLIMIT)")
		logging.Info("  Go heap bounded only by available system memory")
		return
	}

	switch mc.Source {
	case "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT (runtime-applied): %s", formatBytesStartup(mc.GoMemLimit))
	default:
		logging.Info("  Container limit (MEMORY_LIMIT): %s", formatBytesStartup(mc.ContainerLimit))
		logging.Info("  Go soft memory limit:           %s (%.0f%% of container)",
			formatBytesStartup(mc.GoMemLimit), mc.Ratio*100)
	}
}

// formatBytesStartup renders a byte count in IEC units for startup logs.
func formatBytesStartup(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
