package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/claude-sessions/config"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/grovetools/claude-sessions/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const (
	// LevelEnv overrides the configured log level.
	LevelEnv = "CLAUDE_SESSIONS_LOG_LEVEL"
	// CallerEnv enables caller reporting when set to "true".
	CallerEnv = "CLAUDE_SESSIONS_LOG_CALLER"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// active is the logging config applied to every logger. Nil until the
	// first logger is created or Configure is called.
	active *config.LoggingConfig

	// sinks caches opened log files by path so all components share one handle.
	sinks = make(map[string]*os.File)
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	if active == nil {
		cfg := config.Default()
		if loaded, err := config.LoadDefault(); err == nil {
			cfg = loaded
		} else {
			logrus.Warnf("Failed to load config, using default logging: %v", err)
		}
		active = &cfg.Logging
	}

	logger := logrus.New()
	apply(logger, *active)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure replaces the logging config and re-applies it to every logger
// created so far. The daemon calls it after loading its config and whenever
// the config file changes.
func Configure(cfg config.LoggingConfig) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	active = &cfg
	for _, entry := range loggers {
		apply(entry.Logger, cfg)
	}
}

// apply configures level, caller reporting, formatter and outputs.
// Callers hold loggersMu.
func apply(logger *logrus.Logger, cfg config.LoggingConfig) {
	levelStr := "info"
	if env := os.Getenv(LevelEnv); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv(CallerEnv) == "true" || cfg.ReportCaller)

	switch cfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: config.FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: cfg.Format})
	}

	var writers []io.Writer

	if cfg.File.Enabled {
		logFilePath := cfg.File.Path
		if logFilePath == "" {
			logFilePath = filepath.Join(paths.Root(), "daemon.log")
		}
		file, err := pathutil.Expand(logFilePath)
		if err == nil {
			var sink *os.File
			if sink, err = openSink(file); err == nil {
				writers = append(writers, sink)
			}
		}
		if err != nil {
			logrus.Warnf("Failed to open log file %s: %v", logFilePath, err)
		}
	}

	if shouldLogToStderr(cfg.Format.StructuredToStderr, level) {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
}

// shouldLogToStderr decides the stderr sink. In "auto" mode structured logs go
// to stderr when debugging or when stderr is not an interactive terminal.
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	isDebug := os.Getenv("CLAUDE_SESSIONS_DEBUG") == "1" || level >= logrus.DebugLevel
	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return isDebug || !isInteractive
}

func openSink(path string) (*os.File, error) {
	if file, ok := sinks[path]; ok {
		return file, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	sinks[path] = file
	return file, nil
}
