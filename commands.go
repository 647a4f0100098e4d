package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geolife2one/internal/app"
	"geolife2one/internal/homogenize"
)

var downloadCmd = &cobra.Command{
	Use: "download",
	Short: "Download and unzip the GeoLife dataset",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dir, _ := cmd.Flags().GetString("output-directory"); dir != "" {
			cfg.DatasetDir = dir
		}
		extracted, err := app.Download(cmd.Context(), cfg, logger, os.Stderr)
		if err != nil {
			return err
		}
		logger.Info("dataset ready", zap.String("directory", extracted))
		return nil
	},
}

var importOpts app.ImportOptions

var importCmd = &cobra.Command{
	Use: "import",
	Short: "Read GeoLife trajectories into the database",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dir, _ := cmd.Flags().GetString("dataset"); dir != "" {
			cfg.DatasetDir = dir
		}
		if noBounds, _ := cmd.Flags().GetBool("no-bounds"); noBounds {
			cfg.FilterBounds = false
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Import(cmd.Context(), importOpts)
		return err
	},
}

var homogenizeCmd = &cobra.Command{
	Use: "homogenize",
	Short: "Resample every day user onto a fixed time grid",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := timeDelta(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Homogenize(cmd.Context(), delta)
		return err
	},
}

var exportOpts app.ExportOptions

var exportCmd = &cobra.Command{
	Use: "export",
	Short: "Write out files for simulation",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if exportOpts.TimeDelta, err = timeDelta(cmd); err != nil {
			return err
		}
		if exportOpts.OutputDirectory, err = filepath.Abs(exportOpts.OutputDirectory); err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Export(cmd.Context(), exportOpts)
		if err != nil {
			return err
		}
		logger.Info("export finished",
			zap.String("movement_file", result.MovementFile),
			zap.String("centroid_file", result.CentroidFile),
			zap.String("config_file", result.ConfigFile),
			zap.Int("num_users", result.NumUsers),
			zap.Int("records", result.Records))
		return nil
	},
}

var geostatsCmd = &cobra.Command{
	Use: "geostats",
	Short: "Write the geographic distribution of users over time",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := timeDelta(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("output-directory")
		if dir, err = filepath.Abs(dir); err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.GeoStats(cmd.Context(), delta, dir)
		if err != nil {
			return err
		}
		logger.Info("distance statistics written", zap.String("path", path))
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use: "users",
	Short: "List imported day users",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eligible, _ := cmd.Flags().GetBool("eligible")
		locate, _ := cmd.Flags().GetBool("locate")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if locate {
			if _, err := a.LocateDayUsers(cmd.Context()); err != nil {
				return err
			}
		}

		dayUsers, err := a.DayUsers(cmd.Context(), eligible)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSER\tDAY\tSTART\tDURATION\tCOUNT\tCENTROID\tPLACE\tTIMEZONE")
		for _, u := range dayUsers {
			place := u.City
			if u.Country != "" {
				place = u.City + ", " + u.Country
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%.6f,%.6f\t%s\t%s\n",
				u.ID, u.User, u.Day, homogenize.FormatTimeOfDay(u.Start), time.Duration(u.Duration)*time.Second,
				u.Count, u.CentroidLat, u.CentroidLon, place, u.Timezone)
		}
		return w.Flush()
	},
}

func init() {
	downloadCmd.Flags().StringP("output-directory", "o", "", "directory to download into (default from config)")

	importCmd.Flags().String("dataset", "", "directory holding the GeoLife dataset (default from config)")
	importCmd.Flags().IntVarP(&importOpts.NumUsers, "num-users", "n", 0, "number of dataset users to import, 0 for all")
	importCmd.Flags().BoolVar(&importOpts.Randomize, "randomize", false, "import random users instead of the first ones")
	importCmd.Flags().StringVar(&importOpts.Date, "date", "", "only import fixes of this day (YYYY-MM-DD)")
	importCmd.Flags().Int64Var(&importOpts.Seed, "seed", 0, "random seed, 0 seeds from the clock")
	importCmd.Flags().BoolVar(&importOpts.Locate, "locate", false, "reverse geocode day user centroids")
	importCmd.Flags().Bool("no-bounds", false, "keep fixes outside of the configured bounds")

	homogenizeCmd.Flags().IntP("time-delta", "d", 0, "seconds between two consecutive records (default from config)")

	exportCmd.Flags().IntVarP(&exportOpts.NumUsers, "num-users", "n", 0, "number of users to select from db, 0 for all")
	exportCmd.Flags().IntP("time-delta", "d", 0, "seconds between two consecutive records (default from config)")
	exportCmd.Flags().StringVarP(&exportOpts.OutputDirectory, "output-directory", "o", "./out", "directory to store created files")
	exportCmd.Flags().IntVarP(&exportOpts.Interests, "interests-per-user", "i", 25, "number of social interests per user")
	exportCmd.Flags().IntVarP(&exportOpts.MessageFreq, "message-freq", "m", 10, "how frequently messages should be generated, in seconds")
	exportCmd.Flags().IntVarP(&exportOpts.InterestSpace, "space-dimensions", "s", 200, "total unique social interests")
	exportCmd.Flags().Int64Var(&exportOpts.Seed, "seed", 0, "random seed, 0 seeds from the clock")

	geostatsCmd.Flags().IntP("time-delta", "d", 0, "seconds between two consecutive records (default from config)")
	geostatsCmd.Flags().StringP("output-directory", "o", "./out", "directory to store distance_stats.csv")

	usersCmd.Flags().Bool("eligible", false, "only list day users that pass the export thresholds")
	usersCmd.Flags().Bool("locate", false, "reverse geocode day users that have no place yet")
}

// Reads the --time-delta flag, falling back to the configured delta.
func timeDelta(cmd *cobra.Command) (time.Duration, error) {
	seconds, err := cmd.Flags().GetInt("time-delta")
	if err != nil {
		return 0, err
	}
	if seconds == 0 {
		return cfg.TimeDelta, nil
	}
	if seconds < 0 {
		return 0, fmt.Errorf("time delta must be positive, got %d", seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}
