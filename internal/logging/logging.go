// Builds the zap loggers used by geolife2one.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Creates a logger that writes human readable lines to stderr and JSON lines to a log file. The log
// file is truncated on every run.
// level: the minimum level to log
// logFile: path of the log file; empty disables file output
// Returns the logger, a cleanup function that syncs and closes the file, or any errors
func New(level zapcore.Level, logFile string) (*zap.Logger, func(), error) {
	atom := zap.NewAtomicLevelAt(level)

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), atom),
	}

	var file *os.File
	if logFile != "" {
		var err error
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(file),
			atom,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named("geolife")
	cleanup := func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return logger, cleanup, nil
}
