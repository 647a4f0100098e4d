// The main file for geolife2one: turns GeoLife trajectories into ONE simulator scenarios.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"geolife2one/internal/app"
	"geolife2one/internal/config"
	"geolife2one/internal/logging"
)

var (
	configFile string
	verbose bool

	cfg config.Config
	logger *zap.Logger
	closeLogger func()
)

var rootCmd = &cobra.Command{
	Use: "geolife2one",
	Short: "Convert GeoLife trajectories into ONE simulator movement traces",
	Long: `geolife2one imports the GeoLife GPS trajectory dataset into a relational database,
resamples every user-day onto a fixed time grid and exports selections of users as
ONE external movement files together with centroid files, distance statistics and
simulator settings.

Typical run:
  geolife2one download
  geolife2one import
  geolife2one homogenize -d 5
  geolife2one export -n 20 -o ./out`,
	SilenceUsage: true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.New(configFile)
		if err != nil {
			return fmt.Errorf("unable to process configuration file %s: %w", configFile, err)
		}
		if verbose {
			cfg.LogLevel = zapcore.DebugLevel
		}
		logger, closeLogger, err = logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			closeLogger()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "res/config/config.ini", "path to the .ini configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(downloadCmd, importCmd, homogenizeCmd, exportCmd, geostatsCmd, usersCmd)
}

// Opens the app for commands that need the database.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			closeLogger()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
