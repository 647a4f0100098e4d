// Resamples irregular per-user GPS traces onto a fixed time-of-day grid.
package homogenize

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DayStart is the first second of a day.
	DayStart = 0
	// DayEnd is the last whole second of a day (23:59:59).
	DayEnd = 24*60*60 - 1
)

// A position at a second of the day.
type Sample struct {
	Time int64 // seconds since midnight
	Latitude float64
	Longitude float64
}

// Converts a step to whole seconds.
// step: the grid step; must be a positive number of whole seconds
// Returns the step in seconds or an error
func StepSeconds(step time.Duration) (int64, error) {
	if step < time.Second || step%time.Second != 0 {
		return 0, fmt.Errorf("time delta %s must be a positive number of whole seconds", step)
	}
	return int64(step / time.Second), nil
}

// Lists the grid times start, start+step, ... up to and including end.
// start: first time in seconds since midnight
// end: last allowed time in seconds since midnight
// step: grid step in seconds, positive
// Returns the grid, empty when step is not positive
func TimeRange(start int64, end int64, step int64) []int64 {
	n := NumElements(start, end, step)
	if n == 0 {
		return nil
	}
	times := make([]int64, 0, n)
	for t := start; t <= end; t += step {
		times = append(times, t)
	}
	return times
}

// Counts the grid times TimeRange would produce.
func NumElements(start int64, end int64, step int64) int {
	if step <= 0 || end < start {
		return 0
	}
	return int((end-start)/step) + 1
}

// Formats seconds since midnight as hh:mm:ss.
func FormatTimeOfDay(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// Seconds since midnight of t in loc (UTC when loc is nil).
func TimeOfDay(t time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return int64(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Resamples one user-day onto the grid. For every grid time between the first and the last fix the
// position of the latest fix at or before that time is held. Grid times outside the span of the
// fixes produce nothing. When several fixes share a second the last one wins.
// fixes: samples of one user-day, in any order
// step: grid step in seconds, positive
// Returns samples on the grid in ascending time
func Resample(fixes []Sample, step int64) []Sample {
	if len(fixes) == 0 || step <= 0 {
		return nil
	}

	sorted := make([]Sample, len(fixes))
	copy(sorted, fixes)
	sort.SliceStable(sorted, func(i int, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	first := sorted[0].Time
	last := sorted[len(sorted)-1].Time
	start := first
	if rem := first % step; rem != 0 {
		start = first + step - rem
	}
	if start > last {
		return nil
	}

	grid := TimeRange(start, last, step)
	samples := make([]Sample, 0, len(grid))
	i := 0
	for _, t := range grid {
		for i+1 < len(sorted) && sorted[i+1].Time <= t {
			i++
		}
		samples = append(samples, Sample{
			Time: t,
			Latitude: sorted[i].Latitude,
			Longitude: sorted[i].Longitude,
		})
	}
	return samples
}
