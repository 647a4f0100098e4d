// Provides the main logic for geolife2one: every command runs through an App holding the
// configuration, the logger and the database.
package app

import (
	"context"
	"io"
	"math/rand"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"geolife2one/internal/config"
	"geolife2one/internal/download"
	"geolife2one/internal/geolocation"
	"geolife2one/internal/resources"
	"geolife2one/internal/store"
)

type App struct {
	Config config.Config
	Logger *zap.Logger
	Store *store.Store
	Locator *geolocation.Locator // loaded on first use when nil
}

// Opens the database named in the configuration.
// ctx: context for opening the store
// cfg: the configurations to run with
// logger: where progress is logged
// Returns the app or any errors
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	s, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Logger: logger, Store: s}, nil
}

// Close closes the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// Downloads and unzips the GeoLife archive into the dataset directory.
// ctx: cancels the download
// progress: where the progress bar is drawn, nil for none
// Returns the extracted directory or any errors
func Download(ctx context.Context, cfg config.Config, logger *zap.Logger, progress io.Writer) (string, error) {
	return download.New(logger, progress).Fetch(ctx, cfg.DownloadURL, cfg.DatasetDir)
}

// Returns the app's locator, loading the geodata the first time.
func (a *App) locator() (*geolocation.Locator, error) {
	if a.Locator == nil {
		a.Logger.Debug("loading geolocation data")
		locator, err := geolocation.New()
		if err != nil {
			return nil, err
		}
		a.Locator = locator
	}
	return a.Locator, nil
}

// Refuses to start long jobs when the host is short on memory or disk.
func (a *App) checkResources() error {
	path := "."
	if a.Config.DatabaseDriver == store.DriverSQLite {
		path = filepath.Dir(a.Config.DatabaseDSN)
	}
	limits := resources.Limits{
		MaxMemoryPercent: a.Config.MaxMemoryPercent,
		MaxDiskPercent: a.Config.MaxDiskPercent,
	}
	return limits.Check(path, a.Logger)
}

// A seeded random source; seed 0 seeds from the clock.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
