// Package log provides the process-wide structured logger. It wraps zerolog
// and exposes the printf and key-value helpers used across the module.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// logTestWriterName is a special output name used in tests to send the logs to
// logTestWriter instead of a file or a standard stream.
const logTestWriterName = "log_test_writer"

var (
	log      zerolog.Logger
	logLevel atomic.Value

	// logTestWriter is the io.Writer used when Init is called with
	// logTestWriterName as output.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars makes the logger panic when a message contains
	// invalid UTF-8, useful to catch raw bytes being logged by mistake.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	if err := Init(LogLevelInfo, "stderr", nil); err != nil {
		panic(err)
	}
}

// invalidCharChecker is a zerolog hook that inspects every message before it
// is written.
type invalidCharChecker struct{}

func (invalidCharChecker) Run(_ *zerolog.Event, _ zerolog.Level, msg string) {
	if panicOnInvalidChars && !utf8.ValidString(msg) {
		panic(fmt.Sprintf("log line with invalid chars: %q", msg))
	}
}

// errorLevelWriter duplicates the error and fatal entries into a second writer.
type errorLevelWriter struct {
	io.Writer
	errorWriter io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel {
		if _, err := w.errorWriter.Write(p); err != nil {
			return 0, err
		}
	}
	return w.Write(p)
}

// Init (re)configures the logger. Level must be one of debug, info, warn or
// error. Output can be stdout, stderr or a file path. If errorOutput is not
// nil, error entries are also copied there.
func Init(level, output string, errorOutput io.Writer) error {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log output %q: %w", output, err)
		}
		out = f
	}
	if errorOutput != nil {
		out = &errorLevelWriter{Writer: out, errorWriter: errorOutput}
	}

	zl, err := parseLevel(level)
	if err != nil {
		return err
	}
	log = zerolog.New(out).Level(zl).With().Timestamp().Caller().Logger().Hook(invalidCharChecker{})
	// one frame for the helper in this package
	zerolog.CallerSkipFrameCount = 3
	logLevel.Store(level)
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case LogLevelDebug:
		return zerolog.DebugLevel, nil
	case LogLevelInfo:
		return zerolog.InfoLevel, nil
	case LogLevelWarn:
		return zerolog.WarnLevel, nil
	case LogLevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
}

// Level returns the current log level.
func Level() string {
	return logLevel.Load().(string)
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

func Debug(args ...any) {
	log.Debug().Msg(fmt.Sprint(args...))
}

func Info(args ...any) {
	log.Info().Msg(fmt.Sprint(args...))
}

func Warn(args ...any) {
	log.Warn().Msg(fmt.Sprint(args...))
}

func Error(args ...any) {
	log.Error().Msg(fmt.Sprint(args...))
}

func Fatal(args ...any) {
	log.Fatal().Msg(fmt.Sprint(args...))
}

func Debugf(template string, args ...any) {
	log.Debug().Msgf(template, args...)
}

func Infof(template string, args ...any) {
	log.Info().Msgf(template, args...)
}

func Warnf(template string, args ...any) {
	log.Warn().Msgf(template, args...)
}

func Errorf(template string, args ...any) {
	log.Error().Msgf(template, args...)
}

func Fatalf(template string, args ...any) {
	log.Fatal().Msgf(template, args...)
}

// Debugw logs a message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	log.Debug().Fields(keyvalues).Msg(msg)
}

// Infow logs a message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	log.Info().Fields(keyvalues).Msg(msg)
}

// Warnw logs a message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	log.Warn().Fields(keyvalues).Msg(msg)
}

// Errorw logs an error together with a message.
func Errorw(err error, msg string) {
	log.Error().Err(err).Msg(msg)
}
