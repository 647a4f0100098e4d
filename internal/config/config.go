// Parses and provides configurations for geolife2one.
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/ini.v1"
)

const (
	DefaultDownloadURL = "https://download.microsoft.com/download/F/4/8/F4894AA5-FDBC-481E-9285-D5F8C4C4F039/Geolife%20Trajectories%201.3.zip"
)

// Geographic extent in decimal degrees.
type Bounds struct {
	North float64
	South float64
	East float64
	West float64
}

// Contains reports whether a point lies inside the bounds, edges included.
func (b Bounds) Contains(latitude float64, longitude float64) bool {
	return latitude <= b.North && latitude >= b.South && longitude <= b.East && longitude >= b.West
}

// Named extents that can be used in place of explicit bounds.
var Presets = map[string]Bounds{
	"beijing": {North: 41.1398565, South: 38.5089264, East: 118.3662329, West: 115.3983897},
	"china": {North: 53.567732, South: 18.126, East: 122.6, West: 73.4},
}

// Configurations for geolife2one
// configs are read in from a .ini config file
type Config struct {
	DatabaseDriver string
	DatabaseDSN string

	LogLevel zapcore.Level
	LogFile string

	DatasetDir string
	DownloadURL string

	Bounds Bounds
	FilterBounds bool

	TimeDelta time.Duration
	LocalTime bool
	ImportWorkers int

	GridScale float64
	MinDuration int
	MinCount int
	ConfigTemplate string
	ConfigFile string
	SecondsToZero int

	MaxMemoryPercent float64
	MaxDiskPercent float64
}

// Default returns the configuration used when no key overrides it.
func Default() Config {
	return Config{
		DatabaseDriver: "sqlite3",
		DatabaseDSN: "geolife.db",
		LogLevel: zapcore.DebugLevel,
		LogFile: "/tmp/geolife.log",
		DatasetDir: "./data",
		DownloadURL: DefaultDownloadURL,
		Bounds: Presets["beijing"],
		FilterBounds: true,
		TimeDelta: 5 * time.Second,
		ImportWorkers: 4,
		GridScale: 90000,
		MinDuration: 7200,
		MinCount: 500,
		ConfigTemplate: "res/templates/chitchat_MessageStatsReport.mustache",
		ConfigFile: "batch_settings.txt",
		SecondsToZero: 300,
		MaxMemoryPercent: 95,
		MaxDiskPercent: 95,
	}
}

// Creates a new Config object
// configPath: path to the .ini config file
// Returns a configuration struct or an error
func New(configPath string) (Config, error) {
	config := Default()

	configFile, err := ini.Load(configPath)
	if err != nil {
		return config, err
	}

	database := configFile.Section("database")
	if config.DatabaseDriver, err = optString(database, "driver", config.DatabaseDriver); err != nil {
		return config, err
	}
	if config.DatabaseDriver != "sqlite3" && config.DatabaseDriver != "pgx" {
		return config, fmt.Errorf("%s is not a database driver. Choose from sqlite3 or pgx.", config.DatabaseDriver)
	}
	if config.DatabaseDSN, err = optString(database, "dsn", config.DatabaseDSN); err != nil {
		return config, err
	}

	logging := configFile.Section("logging")
	if logging.HasKey("level") {
		config.LogLevel, err = getLogLevel(logging, "level")
		if err != nil {
			return config, err
		}
	}
	if config.LogFile, err = optString(logging, "file", config.LogFile); err != nil {
		return config, err
	}

	dataset := configFile.Section("dataset")
	if config.DatasetDir, err = optString(dataset, "directory", config.DatasetDir); err != nil {
		return config, err
	}
	if config.DownloadURL, err = optString(dataset, "url", config.DownloadURL); err != nil {
		return config, err
	}

	config.Bounds, err = getBounds(configFile.Section("bounds"), config.Bounds)
	if err != nil {
		return config, err
	}
	if config.FilterBounds, err = optBool(configFile.Section("bounds"), "filter", config.FilterBounds); err != nil {
		return config, err
	}

	homogenize := configFile.Section("homogenize")
	if homogenize.HasKey("time_delta") {
		seconds, err := getInt(homogenize, "time_delta", 1, 86400)
		if err != nil {
			return config, err
		}
		config.TimeDelta = time.Duration(seconds) * time.Second
	}
	if config.LocalTime, err = optBool(homogenize, "local_time", config.LocalTime); err != nil {
		return config, err
	}
	if homogenize.HasKey("import_workers") {
		if config.ImportWorkers, err = getInt(homogenize, "import_workers", 1, 256); err != nil {
			return config, err
		}
	}

	export := configFile.Section("export")
	if export.HasKey("decimal_degrees_to_grid_scale") {
		if config.GridScale, err = getFloat(export, "decimal_degrees_to_grid_scale", 1e-9, 1e12); err != nil {
			return config, err
		}
	}
	if export.HasKey("min_duration") {
		if config.MinDuration, err = getInt(export, "min_duration", 0, 86400); err != nil {
			return config, err
		}
	}
	if export.HasKey("min_count") {
		if config.MinCount, err = getInt(export, "min_count", 0, 1<<30); err != nil {
			return config, err
		}
	}
	if config.ConfigTemplate, err = optString(export, "config_template", config.ConfigTemplate); err != nil {
		return config, err
	}
	if config.ConfigFile, err = optString(export, "config_file", config.ConfigFile); err != nil {
		return config, err
	}
	if export.HasKey("seconds_to_zero") {
		if config.SecondsToZero, err = getInt(export, "seconds_to_zero", 0, 86400); err != nil {
			return config, err
		}
	}

	resources := configFile.Section("resources")
	if resources.HasKey("max_memory_percent") {
		if config.MaxMemoryPercent, err = getFloat(resources, "max_memory_percent", 0, 100); err != nil {
			return config, err
		}
	}
	if resources.HasKey("max_disk_percent") {
		if config.MaxDiskPercent, err = getFloat(resources, "max_disk_percent", 0, 100); err != nil {
			return config, err
		}
	}

	return config, nil
}

// Reads the [bounds] section. A preset key selects a named extent, explicit north/south/east/west
// keys override single edges.
// section: the bounds section
// bounds: the bounds to start from
// Returns the resulting bounds or an error
func getBounds(section *ini.Section, bounds Bounds) (Bounds, error) {
	if section.HasKey("preset") {
		name, err := getString(section, "preset")
		if err != nil {
			return bounds, err
		}
		preset, ok := Presets[name]
		if !ok {
			return bounds, fmt.Errorf("%s is not a bounds preset. Choose from beijing or china.", name)
		}
		bounds = preset
	}

	edges := []struct {
		key string
		val *float64
		low float64
		high float64
	}{
		{"north", &bounds.North, -90, 90},
		{"south", &bounds.South, -90, 90},
		{"east", &bounds.East, -180, 180},
		{"west", &bounds.West, -180, 180},
	}
	for _, edge := range edges {
		if !section.HasKey(edge.key) {
			continue
		}
		val, err := getFloat(section, edge.key, edge.low, edge.high)
		if err != nil {
			return bounds, err
		}
		*edge.val = val
	}

	if bounds.North <= bounds.South {
		return bounds, fmt.Errorf("north bound %f must be greater than south bound %f", bounds.North, bounds.South)
	}
	if bounds.East <= bounds.West {
		return bounds, fmt.Errorf("east bound %f must be greater than west bound %f", bounds.East, bounds.West)
	}
	return bounds, nil
}

// Gets a string from the config file.
// section: the section of the ini file that contains the key
// keyStr: the key
// Returns the value of the key or an error
func getString(section *ini.Section, keyStr string) (string, error) {
	key, err := section.GetKey(keyStr)
	if err != nil {
		return "", err
	}
	val := key.String()
	if val == "" {
		return "", fmt.Errorf("No value read from %s key", keyStr)
	}
	return val, nil
}

// Gets a string from the config file, or the fallback if the key is missing.
func optString(section *ini.Section, keyStr string, fallback string) (string, error) {
	if !section.HasKey(keyStr) {
		return fallback, nil
	}
	return getString(section, keyStr)
}

// Gets a log level from the config file.
// section: the section of the ini file that contains the key
// keyStr: the key
// Returns the zap level or an error
func getLogLevel(section *ini.Section, keyStr string) (zapcore.Level, error) {
	val, err := getString(section, keyStr)
	if err != nil {
		return zapcore.InfoLevel, err
	}

	switch val {
	case "wtf":
		return zapcore.DPanicLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%s is not a log level. Choose from wtf, error, warn, info, or debug.", val)
	}
}

// Gets an integer from the config file.
// section: the section of the ini file that contains the key
// keyStr: the key
// low: the lower bounds (inclusive) that the value should not go below
// high: the upper bounds (inclusive) that the value should not go above
// Returns the value or an error
func getInt(section *ini.Section, keyStr string, low int, high int) (int, error) {
	key, err := section.GetKey(keyStr)
	if err != nil {
		return -1, err
	}
	val, err := key.Int()
	if err != nil {
		return -1, fmt.Errorf("%s in %s key", err, keyStr)
	}
	if val < low || val > high {
		return -1, fmt.Errorf("%d is not a valid number for %s. Must be between %d and %d inclusive.", val, keyStr, low, high)
	}
	return val, nil
}

// Gets a float from the config file.
// section: the section of the ini file that contains the key
// keyStr: the key
// low: the lower bounds (inclusive)
// high: the upper bounds (inclusive)
// Returns the value or an error
func getFloat(section *ini.Section, keyStr string, low float64, high float64) (float64, error) {
	key, err := section.GetKey(keyStr)
	if err != nil {
		return -1, err
	}
	val, err := key.Float64()
	if err != nil {
		return -1, fmt.Errorf("%s in %s key", err, keyStr)
	}
	if val < low || val > high {
		return -1, fmt.Errorf("%g is not a valid number for %s. Must be between %g and %g inclusive.", val, keyStr, low, high)
	}
	return val, nil
}

// Gets a boolean from the config file.
// section: the section of the ini file that contains the key
// keyStr: the key
// Returns the value or an error
func getBool(section *ini.Section, keyStr string) (bool, error) {
	key, err := section.GetKey(keyStr)
	if err != nil {
		return false, err
	}
	val, err := key.Bool()
	if err != nil {
		return false, fmt.Errorf("%s in %s key", err, keyStr)
	}
	return val, nil
}

func optBool(section *ini.Section, keyStr string, fallback bool) (bool, error) {
	if !section.HasKey(keyStr) {
		return fallback, nil
	}
	return getBool(section, keyStr)
}
