package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "GITSYNC_LOG_LEVEL"
	EnvLogTimestamp = "GITSYNC_LOG_TIMESTAMP"
	EnvLogNoColor   = "GITSYNC_LOG_NOCOLOR"
)

type Options struct {
	Out       io.Writer
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// DefaultOptions returns info-level, timestamped, colored output on stderr.
// verbose lowers the level to debug.
func DefaultOptions(verbose bool) Options {
	opts := Options{Out: os.Stderr, Level: zerolog.InfoLevel, Timestamp: true}
	if verbose {
		opts.Level = zerolog.DebugLevel
	}
	return opts
}

// New builds the process logger. Environment overrides win over opts.
func New(opts Options) zerolog.Logger {
	applyEnvOverrides(&opts)
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	w := zerolog.ConsoleWriter{
		Out:        opts.Out,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	if !opts.Timestamp {
		w.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	ctx := zerolog.New(w).Level(opts.Level).With().Str("app", "gitsync")
	if opts.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// ForTest returns a debug logger writing plain text to w.
func ForTest(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).
		Level(zerolog.DebugLevel)
}

func applyEnvOverrides(opts *Options) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		opts.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		opts.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
