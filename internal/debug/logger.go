// Package debug builds the structured logger shared by every component.
package debug

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Categories tag log lines by the component that wrote them.
const (
	CategoryConnection  = "connection"
	CategoryOperation   = "operation"
	CategoryAnalytics   = "analytics"
	CategoryMaintenance = "maintenance"
	CategoryHTTP        = "http"
)

// Options configures the root logger.
type Options struct {
	Level   string // debug, info, warn, error
	Pretty  bool   // console writer instead of JSON
	Service string
	Version string
	Out     io.Writer
}

// New creates the root logger.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	return ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zerolog.WarnLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// For returns a child logger tagged with category.
func For(log zerolog.Logger, category string) zerolog.Logger {
	return log.With().Str("category", category).Logger()
}
