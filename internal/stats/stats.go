// Provides the statistics computed over trajectories: per user-day summaries and the geographic
// distribution of users around their centroid.
package stats

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"geolife2one/internal/geolife"
)

// Summary of a user's fixes over one day.
type DayStats struct {
	Count int64
	Start int64 // seconds since midnight of the first fix
	End int64 // seconds since midnight of the last fix
	Duration int64 // End - Start in seconds
	CentroidLat float64
	CentroidLon float64
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Summarises the fixes of one user-day.
// tods: seconds since midnight of each fix
// fixes: the fixes, same length as tods
// Returns the summary or an error if there are no fixes
func NewDayStats(tods []int64, fixes []geolife.Fix) (DayStats, error) {
	if len(fixes) == 0 {
		return DayStats{}, fmt.Errorf("Slice cannot be of length 0.")
	}
	if len(tods) != len(fixes) {
		return DayStats{}, fmt.Errorf("got %d times for %d fixes", len(tods), len(fixes))
	}

	lats := make([]float64, len(fixes))
	lons := make([]float64, len(fixes))
	for i, fix := range fixes {
		lats[i] = fix.Latitude
		lons[i] = fix.Longitude
	}

	start := slices.Min(tods)
	end := slices.Max(tods)
	return DayStats{
		Count: int64(len(fixes)),
		Start: start,
		End: end,
		Duration: end - start,
		CentroidLat: stat.Mean(lats, nil),
		CentroidLon: stat.Mean(lons, nil),
		MinLat: floats.Min(lats),
		MaxLat: floats.Max(lats),
		MinLon: floats.Min(lons),
		MaxLon: floats.Max(lons),
	}, nil
}

// A position used for distribution statistics.
type Point struct {
	Latitude float64
	Longitude float64
}

// The spread of a set of positions around their centroid.
type Distribution struct {
	CentroidLat float64
	CentroidLon float64
	Distances []float64 // Euclidean distance of each point to the centroid, in degrees
	AvgDistance float64
	StdDistance float64 // population standard deviation
}

// Computes the centroid of the points and the mean and population standard deviation of the
// Euclidean distances to it.
// points: the positions; must not be empty
// Returns the distribution or an error
func NewDistribution(points []Point) (Distribution, error) {
	if len(points) == 0 {
		return Distribution{}, fmt.Errorf("Slice cannot be of length 0.")
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Longitude
		ys[i] = p.Latitude
	}
	centroidX := stat.Mean(xs, nil)
	centroidY := stat.Mean(ys, nil)

	distances := make([]float64, len(points))
	for i := range points {
		distances[i] = math.Hypot(xs[i]-centroidX, ys[i]-centroidY)
	}

	return Distribution{
		CentroidLat: centroidY,
		CentroidLon: centroidX,
		Distances: distances,
		AvgDistance: stat.Mean(distances, nil),
		StdDistance: stat.PopStdDev(distances, nil),
	}, nil
}
