package app

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"geolife2one/internal/homogenize"
	"geolife2one/internal/one"
	"geolife2one/internal/progress"
	"geolife2one/internal/simconfig"
)

const centroidFileName = "centroids.csv"

var ErrNoUsers = errors.New("no day users match the selection")

type ExportOptions struct {
	NumUsers int // number of day users to export, 0 for all
	TimeDelta time.Duration // seconds between consecutive records
	OutputDirectory string
	Interests int // social interests per user
	MessageFreq int // seconds between generated messages
	InterestSpace int // total number of social interests
	Seed int64 // random seed, 0 seeds from the clock
}

type ExportResult struct {
	MovementFile string
	CentroidFile string
	ConfigFile string
	NumUsers int
	Records int
	Skipped int // records outside of the extent
}

// Writes a ONE external movement file for a selection of day users, the centroid file mapping ONE
// addresses to centroids and the simulator settings file.
// ctx: cancels the export
// opts: selection and simulator parameters
// Returns the written files and counts or any errors
func (a *App) Export(ctx context.Context, opts ExportOptions) (ExportResult, error) {
	var result ExportResult
	step, err := homogenize.StepSeconds(opts.TimeDelta)
	if err != nil {
		return result, err
	}
	if err := a.checkTimeDelta(ctx, step); err != nil {
		return result, err
	}

	users, err := a.selectUsers(ctx, opts.NumUsers, opts.Seed)
	if err != nil {
		return result, err
	}
	result.NumUsers = len(users)

	result.MovementFile, err = one.NextMovementFile(opts.OutputDirectory)
	if err != nil {
		return result, err
	}
	leafDirectory := filepath.Dir(result.MovementFile)

	a.Logger.Info("exporting time-homogenized records from database",
		zap.String("output_directory", opts.OutputDirectory),
		zap.Duration("time_delta", opts.TimeDelta),
		zap.String("movement_file", result.MovementFile),
		zap.Int("num_users", len(users)))

	converter := one.NewConverter(a.Config.Bounds, a.Config.GridScale, users)
	result.Records, result.Skipped, err = a.writeMovement(ctx, result.MovementFile, converter, users, step)
	if err != nil {
		return result, err
	}
	if result.Skipped > 0 {
		a.Logger.Warn("records outside of the extent were skipped", zap.Int("skipped", result.Skipped))
	}

	result.CentroidFile = filepath.Join(leafDirectory, centroidFileName)
	if err := a.writeCentroids(ctx, result.CentroidFile, converter, users); err != nil {
		return result, err
	}

	result.ConfigFile = filepath.Join(leafDirectory, a.Config.ConfigFile)
	a.Logger.Info("writing out config file", zap.String("path", result.ConfigFile))
	err = simconfig.RenderFile(a.Config.ConfigTemplate, result.ConfigFile, simconfig.Settings{
		CentroidFile: result.CentroidFile,
		NumHosts: len(users),
		Duration: homogenize.DayEnd - homogenize.DayStart,
		MaxX: converter.NormalizedMaxX,
		MaxY: converter.NormalizedMaxY,
		ExternalMovementFile: result.MovementFile,
		MessageFreq: opts.MessageFreq,
		SocialInterests: opts.Interests,
		InterestSpace: opts.InterestSpace,
		SecondsToZero: a.Config.SecondsToZero,
		LeafDirectory: leafDirectory,
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// Picks the day users to export: those recorded long enough with enough records, randomly sampled
// down to numUsers when that many are available.
func (a *App) selectUsers(ctx context.Context, numUsers int, seed int64) ([]int64, error) {
	users, err := a.Store.SelectDayUsers(ctx, int64(a.Config.MinDuration), int64(a.Config.MinCount))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoUsers
	}

	if numUsers > 0 && len(users) >= numUsers {
		rng := newRand(seed)
		sample := make([]int64, 0, numUsers)
		for _, i := range rng.Perm(len(users))[:numUsers] {
			sample = append(sample, users[i])
		}
		sort.Slice(sample, func(i int, j int) bool { return sample[i] < sample[j] })
		users = sample
	}
	a.Logger.Info("number of users to be written out", zap.Int("num_users", len(users)))
	return users, nil
}

func (a *App) writeMovement(ctx context.Context, path string, converter *one.Converter, users []int64, step int64) (int, int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	a.Logger.Info("writing converted and normalized records", zap.String("path", path))
	header := converter.Header(homogenize.DayStart, homogenize.DayEnd)
	if _, err := fmt.Fprintln(w, header.String()); err != nil {
		return 0, 0, err
	}

	written, skipped := 0, 0
	grid := homogenize.TimeRange(homogenize.DayStart, homogenize.DayEnd, step)
	eta := progress.NewETA(len(grid), "DB to ONE output")
	lastPercent := -1
	for _, t := range grid {
		records, err := a.Store.HomogenizedAt(ctx, t, users)
		if err != nil {
			return written, skipped, err
		}
		for _, r := range records {
			line, err := converter.Convert(r)
			if errors.Is(err, one.ErrOutOfExtent) {
				skipped++
				continue
			}
			if err != nil {
				return written, skipped, err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return written, skipped, err
			}
			written++
		}

		eta.Checkpoint()
		if percent := int(eta.Percent()); percent != lastPercent {
			lastPercent = percent
			a.Logger.Info(eta.String())
		}
	}

	if err := w.Flush(); err != nil {
		return written, skipped, err
	}
	return written, skipped, f.Close()
}

// Writes user,lat,long rows with ONE addresses in place of day user ids.
func (a *App) writeCentroids(ctx context.Context, path string, converter *one.Converter, users []int64) error {
	dayUsers, err := a.Store.DayUsersByID(ctx, users)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user", "lat", "long"}); err != nil {
		return err
	}
	for _, u := range dayUsers {
		err := w.Write([]string{
			strconv.Itoa(converter.UserToAddr[u.ID]),
			formatFloat(u.CentroidLat),
			formatFloat(u.CentroidLon),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
