package resources

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvaluate(t *testing.T) {
	limits := Limits{MaxMemoryPercent: 95, MaxDiskPercent: 90}

	assert.NoError(t, limits.Evaluate(Usage{MemoryPercent: 95, DiskPercent: 90}))

	err := limits.Evaluate(Usage{MemoryPercent: 96, DiskPercent: 10})
	assert.True(t, errors.Is(err, ErrLowResources))
	assert.Contains(t, err.Error(), "memory")

	err = limits.Evaluate(Usage{MemoryPercent: 10, DiskPercent: 91})
	assert.True(t, errors.Is(err, ErrLowResources))
	assert.Contains(t, err.Error(), "disk")
}

func TestMeasure(t *testing.T) {
	usage, err := Measure(t.TempDir())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, usage.MemoryPercent, 0.0)
	assert.LessOrEqual(t, usage.DiskPercent, 100.0)
}

func TestCheckWithOpenLimits(t *testing.T) {
	limits := Limits{MaxMemoryPercent: 100, MaxDiskPercent: 100}
	assert.NoError(t, limits.Check(t.TempDir(), zap.NewNop()))
}
