// Package logging installs the process-wide slog default: a colorized
// tint handler with a "[module]" prefix, so every package can just call
// slog.With("module", "daemon").Info(...) and get a readable, ungrouped
// log line. UART_MONITOR_LOG_LEVEL lets --systemd / production runs drop
// to warn without a recompile.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type modulePrefixHandler struct {
	handler slog.Handler
	module  string
}

func (h *modulePrefixHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *modulePrefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	module := h.module
	var otherAttrs []slog.Attr

	for _, attr := range attrs {
		if attr.Key == "module" {
			module = attr.Value.String()
		} else {
			otherAttrs = append(otherAttrs, attr)
		}
	}

	return &modulePrefixHandler{
		handler: h.handler.WithAttrs(otherAttrs),
		module:  module,
	}
}

func (h *modulePrefixHandler) WithGroup(name string) slog.Handler {
	return &modulePrefixHandler{
		handler: h.handler.WithGroup(name),
		module:  h.module,
	}
}

func (h *modulePrefixHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.module != "" {
		newRecord := slog.NewRecord(r.Time, r.Level, "["+h.module+"] "+r.Message, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		return h.handler.Handle(ctx, newRecord)
	}

	return h.handler.Handle(ctx, r)
}

// levelFromEnv parses UART_MONITOR_LOG_LEVEL ("debug"/"info"/"warn"/
// "error"), defaulting to info for anything unset or unrecognized.
func levelFromEnv() slog.Level {
	switch os.Getenv("UART_MONITOR_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	// Must be imported by main before any other package's init() since
	// they log through the default logger this installs.
	handler := &modulePrefixHandler{
		handler: tint.NewHandler(os.Stderr, &tint.Options{
			Level:      levelFromEnv(),
			TimeFormat: time.Kitchen,
		}),
	}
	slog.SetDefault(slog.New(handler))
}
