package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelFor maps a -v count to a zerolog level.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger configures the global logger for the given verbosity.
// Output goes to stderr and, when it can be opened, to a log file in
// the XDG state directory.
func SetupLogger(verbosity int) {
	SetupLoggerTo(os.Stderr, verbosity, LogFilePath())
}

// SetupLoggerTo is SetupLogger with an explicit console writer and log
// file path. An empty path disables file output.
func SetupLoggerTo(console io.Writer, verbosity int, logFile string) {
	zerolog.SetGlobalLevel(LevelFor(verbosity))

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}}

	var fileErr error
	if logFile != "" {
		f, err := openLogFile(logFile)
		if err == nil {
			writers = append(writers, f)
		}
		fileErr = err
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", logFile).Msg("log file unavailable, logging to console only")
	}
	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("logger initialized")
}

// GetLogger returns a logger tagged with the component name.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// LogOperationStart logs the start of a named operation and returns a
// function that logs its completion with the elapsed time.
func LogOperationStart(logger zerolog.Logger, op string) func(err error) {
	start := time.Now()
	logger.Debug().Str("op", op).Msg("start")
	return func(err error) {
		ev := logger.Debug()
		if err != nil {
			ev = logger.Error().Err(err)
		}
		ev.Str("op", op).Dur("elapsed", time.Since(start)).Msg("done")
	}
}

// LogFilePath is the default log file location.
func LogFilePath() string {
	path, err := xdg.StateFile(filepath.Join("proofline", "proofline.log"))
	if err != nil {
		return "proofline.log"
	}
	return path
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
