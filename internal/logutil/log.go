package logutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	key byte
)

var (
	loggerKey = key(1)
	auditKey  = key(2)
)

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}

// WithAudit attaches the audit logger to ctx, audit events are discrete
// security relevant facts (logins, registrations, rejections) and should
// never carry secrets.
func WithAudit(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, auditKey, logger)
}

// Audit returns the audit logger from ctx, falling back to the process
// logger tagged with audit=true.
func Audit(ctx context.Context) zerolog.Logger {
	v := ctx.Value(auditKey)
	if v == nil {
		return GetOrDefault(ctx).With().Bool("audit", true).Logger()
	}
	return v.(zerolog.Logger)
}

// New builds the process logger
func New(out io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logutil: invalid level %v, cause %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// OpenAuditFile opens (or creates) an append-only audit log.
// The returned closer must be called when the process is done with it.
func OpenAuditFile(path string) (zerolog.Logger, io.Closer, error) {
	fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logutil: unable to open audit log %v, cause %w", path, err)
	}
	return zerolog.New(fd).With().Timestamp().Logger(), fd, nil
}
