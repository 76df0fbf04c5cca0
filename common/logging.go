package common

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggingOpts configures SetupLogger.
type LoggingOpts struct {
	// Debug forces the debug level regardless of Level.
	Debug bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// Service and Version are attached to every record when non-empty.
	Service string
	Version string

	// Level is a textual level as stored in the config file ("INFO", "debug", "warn").
	// Unknown or empty values fall back to info.
	Level string

	// Dir, when set, sends output to a rolling <ProgramName>.log file in Dir.
	// Records are also mirrored to stdout when the effective level is debug.
	Dir string
}

// SetupLogger builds the process logger from opts.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := ParseLevel(opts.Level)
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if opts.Dir != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, ProgramName+".log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			Compress:   false,
		}
		out = fileWriter
		if logLevel <= slog.LevelDebug {
			out = io.MultiWriter(fileWriter, os.Stdout)
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel, AddSource: logLevel <= slog.LevelDebug}
	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(out, handlerOpts))
	} else {
		log = slog.New(slog.NewTextHandler(out, handlerOpts))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}
	return log
}

// ParseLevel maps a config-file level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
