package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const invocationIDKey ctxKey = "invocation_id"

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string
	Format string
}

// NewLogger builds a slog.Logger writing to w. The alert relay logs to stdout
// through the shared observability package; gwctl uses this variant so logs
// go to stderr and stdout stays reserved for command output. Format "text"
// selects the text handler; anything else is JSON. Unknown levels fall back
// to info.
func NewLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelOf(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func levelOf(name string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ContextWithInvocationID attaches a fresh random id to ctx so every log line
// produced by one command or poll cycle can be correlated.
func ContextWithInvocationID(ctx context.Context) context.Context {
	return context.WithValue(ctx, invocationIDKey, uuid.NewString())
}

// InvocationID returns the id stored by ContextWithInvocationID, if any.
func InvocationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(invocationIDKey).(string)
	return id
}

// WithInvocationID enriches base with the invocation id stored in ctx. A nil
// base yields a logger that discards everything.
func WithInvocationID(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	if id := InvocationID(ctx); id != "" {
		return base.With("invocation_id", id)
	}
	return base
}
