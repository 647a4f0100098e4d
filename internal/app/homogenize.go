package app

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"geolife2one/internal/homogenize"
	"geolife2one/internal/progress"
	"geolife2one/internal/store"
)

const timeDeltaKey = "time_delta"

type HomogenizeResult struct {
	DayUsers int
	Records int
}

// Resamples the raw records of every day user onto a grid of delta and replaces the stored
// homogenized records.
// ctx: cancels the run
// delta: the grid step
// Returns counts of what was written or any errors
func (a *App) Homogenize(ctx context.Context, delta time.Duration) (HomogenizeResult, error) {
	var result HomogenizeResult
	step, err := homogenize.StepSeconds(delta)
	if err != nil {
		return result, err
	}
	if err := a.checkResources(); err != nil {
		return result, err
	}

	dayUsers, err := a.Store.DayUsers(ctx)
	if err != nil {
		return result, err
	}
	a.Logger.Info("homogenizing records",
		zap.Int("day_users", len(dayUsers)),
		zap.Duration("time_delta", delta))

	eta := progress.NewETA(len(dayUsers), "Homogenizing day users")
	for _, u := range dayUsers {
		raw, err := a.Store.RawRecords(ctx, u.ID)
		if err != nil {
			return result, err
		}
		samples := make([]homogenize.Sample, len(raw))
		for i, r := range raw {
			samples[i] = homogenize.Sample{Time: r.Time, Latitude: r.Latitude, Longitude: r.Longitude}
		}

		resampled := homogenize.Resample(samples, step)
		records := make([]store.HomogenizedRecord, len(resampled))
		for i, s := range resampled {
			records[i] = store.HomogenizedRecord{
				DayUserID: u.ID,
				Time: s.Time,
				Latitude: s.Latitude,
				Longitude: s.Longitude,
			}
		}
		if err := a.Store.ReplaceHomogenized(ctx, u.ID, records); err != nil {
			return result, err
		}

		result.DayUsers++
		result.Records += len(records)
		eta.Checkpoint()
		a.Logger.Debug(eta.String(), zap.String("user", u.User), zap.String("day", u.Day), zap.Int("records", len(records)))
	}

	if err := a.Store.SetMeta(ctx, timeDeltaKey, strconv.FormatInt(step, 10)); err != nil {
		return result, err
	}
	a.Logger.Info("homogenization finished", zap.Int("day_users", result.DayUsers), zap.Int("records", result.Records))
	return result, nil
}

// Warns when records were homogenized with a step the export step is not a multiple of; grid times
// in between then carry no records.
func (a *App) checkTimeDelta(ctx context.Context, step int64) error {
	value, ok, err := a.Store.Meta(ctx, timeDeltaKey)
	if err != nil || !ok {
		return err
	}
	stored, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	if stored <= 0 || step%stored != 0 {
		a.Logger.Warn("time delta does not match the homogenized records",
			zap.Int64("time_delta", step),
			zap.Int64("homogenized_time_delta", stored))
	}
	return nil
}
