// Checks that the host has enough memory and disk left before long running jobs start.
package resources

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

var ErrLowResources = errors.New("not enough free resources")

// Snapshot of host usage in percent.
type Usage struct {
	MemoryPercent float64
	DiskPercent float64
}

// Upper usage limits in percent.
type Limits struct {
	MaxMemoryPercent float64
	MaxDiskPercent float64
}

// Reads current memory usage and the usage of the volume holding path.
// path: any path on the volume to check
// Returns the usage or any errors
func Measure(path string) (Usage, error) {
	memUsage, err := mem.VirtualMemory()
	if err != nil {
		return Usage{}, err
	}
	diskUsage, err := disk.Usage(path)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		MemoryPercent: memUsage.UsedPercent,
		DiskPercent: diskUsage.UsedPercent,
	}, nil
}

// Evaluate compares a usage snapshot against the limits.
// Returns nil if the host has enough resources; ErrLowResources otherwise
func (limits Limits) Evaluate(usage Usage) error {
	if usage.MemoryPercent > limits.MaxMemoryPercent {
		return fmt.Errorf("%w: memory %.1f%% used, limit %.1f%%", ErrLowResources, usage.MemoryPercent, limits.MaxMemoryPercent)
	}
	if usage.DiskPercent > limits.MaxDiskPercent {
		return fmt.Errorf("%w: disk %.1f%% used, limit %.1f%%", ErrLowResources, usage.DiskPercent, limits.MaxDiskPercent)
	}
	return nil
}

// Check measures the host and evaluates the limits.
// path: any path on the volume the job writes to
// logger: receives the measured usage
// Returns nil if the job may start, ErrLowResources or a measurement error otherwise
func (limits Limits) Check(path string, logger *zap.Logger) error {
	usage, err := Measure(path)
	if err != nil {
		return fmt.Errorf("failed to read host resources: %w", err)
	}
	logger.Debug("host resources",
		zap.Float64("memory_percent", usage.MemoryPercent),
		zap.Float64("disk_percent", usage.DiskPercent))
	return limits.Evaluate(usage)
}
