package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"geolife2one/internal/geolife"
	"geolife2one/internal/geolocation"
	"geolife2one/internal/homogenize"
	"geolife2one/internal/stats"
	"geolife2one/internal/store"
)

type ImportOptions struct {
	NumUsers int // users to import, 0 for all
	Randomize bool // pick random users instead of the first ones
	Date string // only import this day (YYYY-MM-DD) when set
	Seed int64 // random seed, 0 seeds from the clock
	Locate bool // reverse geocode day users
}

type ImportResult struct {
	Users int
	DayUsers int
	Records int
}

// A user's fixes split into days, ready to be stored.
type parsedDay struct {
	dayUser store.DayUser
	records []store.RawRecord
}

type parsedUser struct {
	user string
	days []parsedDay
}

// Reads GeoLife users from the dataset directory into the database. Users are parsed by a pool of
// workers while a single writer stores them.
// ctx: cancels the import
// opts: which users and days to import
// Returns counts of what was stored or any errors
func (a *App) Import(ctx context.Context, opts ImportOptions) (ImportResult, error) {
	var result ImportResult
	if err := a.checkResources(); err != nil {
		return result, err
	}

	root, err := geolife.FindRoot(a.Config.DatasetDir)
	if err != nil {
		return result, err
	}
	a.Logger.Info("GeoLife root found", zap.String("root", root))

	users, err := geolife.Users(root)
	if err != nil {
		return result, err
	}
	users = geolife.SelectUsers(users, opts.NumUsers, opts.Randomize, newRand(opts.Seed))
	a.Logger.Info("importing users", zap.Int("users", len(users)), zap.String("date", opts.Date))

	var locator *geolocation.Locator
	if opts.Locate || a.Config.LocalTime {
		if locator, err = a.locator(); err != nil {
			return result, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan string)
	parsed := make(chan parsedUser)

	g.Go(func() error {
		defer close(jobs)
		for _, user := range users {
			select {
			case jobs <- user:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	numWorkers := a.Config.ImportWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	var workers sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for user := range jobs {
				p, err := a.parseUser(root, user, opts, locator)
				if err != nil {
					return err
				}
				select {
				case parsed <- p:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		workers.Wait()
		close(parsed)
		return nil
	})

	g.Go(func() error {
		for p := range parsed {
			for _, day := range p.days {
				if _, err := a.Store.SaveDayUser(gctx, day.dayUser, day.records); err != nil {
					return err
				}
				result.DayUsers++
				result.Records += len(day.records)
			}
			result.Users++
			a.Logger.Debug("user imported", zap.String("user", p.user), zap.Int("days", len(p.days)))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return result, err
	}
	a.Logger.Info("import finished",
		zap.Int("users", result.Users),
		zap.Int("day_users", result.DayUsers),
		zap.Int("records", result.Records))
	return result, nil
}

// Reads, filters and splits the fixes of one user.
func (a *App) parseUser(root string, user string, opts ImportOptions, locator *geolocation.Locator) (parsedUser, error) {
	p := parsedUser{user: user}
	fixes, err := geolife.ReadUser(root, user)
	if err != nil {
		return p, err
	}

	filter := geolife.Filter{}
	if a.Config.FilterBounds {
		bounds := a.Config.Bounds
		filter.Bounds = &bounds
	}
	fixes = filter.Apply(fixes)
	if len(fixes) == 0 {
		return p, nil
	}

	var zone *time.Location
	if a.Config.LocalTime {
		// one zone per user, taken at the centroid of all their fixes
		all, err := stats.NewDayStats(make([]int64, len(fixes)), fixes)
		if err != nil {
			return p, err
		}
		if zone, err = locator.TimeZone(all.CentroidLat, all.CentroidLon); err != nil {
			return p, fmt.Errorf("user %s: %w", user, err)
		}
	}
	filter = geolife.Filter{Date: opts.Date, Location: zone}
	fixes = filter.Apply(fixes)

	days, keys := geolife.GroupByDay(fixes, zone)
	for _, day := range keys {
		dayFixes := days[day]
		tods := make([]int64, len(dayFixes))
		records := make([]store.RawRecord, len(dayFixes))
		for i, fix := range dayFixes {
			tods[i] = homogenize.TimeOfDay(fix.Time, zone)
			records[i] = store.RawRecord{
				Timestamp: fix.Time.Unix(),
				Time: tods[i],
				Latitude: fix.Latitude,
				Longitude: fix.Longitude,
				Altitude: fix.Altitude,
			}
		}

		s, err := stats.NewDayStats(tods, dayFixes)
		if err != nil {
			return p, err
		}
		dayUser := store.DayUser{
			User: user,
			Day: day,
			Start: s.Start,
			End: s.End,
			Duration: s.Duration,
			Count: s.Count,
			CentroidLat: s.CentroidLat,
			CentroidLon: s.CentroidLon,
			MinLat: s.MinLat,
			MaxLat: s.MaxLat,
			MinLon: s.MinLon,
			MaxLon: s.MaxLon,
		}
		if zone != nil {
			dayUser.Timezone = zone.String()
		}
		if locator != nil && opts.Locate {
			place, err := locator.Locate(s.CentroidLat, s.CentroidLon)
			if err != nil {
				return p, fmt.Errorf("user %s day %s: %w", user, day, err)
			}
			dayUser.Country = place.Country
			dayUser.City = place.City
			if zone == nil {
				// otherwise keep the zone the times of day were taken in
				dayUser.Timezone = place.TimeZone
			}
		}

		p.days = append(p.days, parsedDay{dayUser: dayUser, records: records})
	}
	return p, nil
}
