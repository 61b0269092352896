package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	mu            sync.Mutex
)

// Init sets the process logger. Production always logs JSON at info or above
// unless level says otherwise.
func Init(env string, opts ...Option) {
	o := options{level: "", format: "", out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	level := slog.LevelDebug
	format := o.format
	if env == "production" {
		level = slog.LevelInfo
		if format == "" {
			format = "json"
		}
	}
	if o.level != "" {
		level = parseLevel(o.level)
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(o.out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(o.out, &slog.HandlerOptions{Level: level})
	}

	mu.Lock()
	defaultLogger = slog.New(handler)
	mu.Unlock()
	slog.SetDefault(defaultLogger)
}

type options struct {
	level  string
	format string
	out    io.Writer
}

type Option func(*options)

func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LoggerWrapper() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init("development")
		mu.Lock()
		l = defaultLogger
		mu.Unlock()
	}
	return l
}

// Discard is used by tests that want a silent logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
