package app

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"geolife2one/internal/homogenize"
	"geolife2one/internal/progress"
	"geolife2one/internal/stats"
)

const distanceStatsFileName = "distance_stats.csv"

// Writes, for every grid time, the centroid of all homogenized records at that time and the mean and
// standard deviation of their distance to it. Grid times without records are left out.
// ctx: cancels the run
// delta: the grid step
// outputDirectory: where distance_stats.csv is written
// Returns the path of the written file or any errors
func (a *App) GeoStats(ctx context.Context, delta time.Duration, outputDirectory string) (string, error) {
	step, err := homogenize.StepSeconds(delta)
	if err != nil {
		return "", err
	}
	if err := a.checkTimeDelta(ctx, step); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDirectory, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDirectory, distanceStatsFileName)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "centroid_lat", "centroid_long", "avg_distance", "std_distance"}); err != nil {
		return "", err
	}

	grid := homogenize.TimeRange(homogenize.DayStart, homogenize.DayEnd, step)
	eta := progress.NewETA(len(grid), "Geographic distribution over time")
	lastPercent := -1
	for _, t := range grid {
		records, err := a.Store.HomogenizedAt(ctx, t, nil)
		if err != nil {
			return "", err
		}
		eta.Checkpoint()
		if percent := int(eta.Percent()); percent != lastPercent {
			lastPercent = percent
			a.Logger.Info(eta.String())
		}
		if len(records) == 0 {
			continue
		}

		points := make([]stats.Point, len(records))
		for i, r := range records {
			points[i] = stats.Point{Latitude: r.Latitude, Longitude: r.Longitude}
		}
		d, err := stats.NewDistribution(points)
		if err != nil {
			return "", err
		}
		a.Logger.Debug("distribution",
			zap.String("time", homogenize.FormatTimeOfDay(t)),
			zap.Float64("centroid_lat", d.CentroidLat),
			zap.Float64("centroid_long", d.CentroidLon),
			zap.Float64("avg_distance", d.AvgDistance),
			zap.Float64("std_distance", d.StdDistance))

		err = w.Write([]string{
			homogenize.FormatTimeOfDay(t),
			formatFloat(d.CentroidLat),
			formatFloat(d.CentroidLon),
			formatFloat(d.AvgDistance),
			formatFloat(d.StdDistance),
		})
		if err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
