// Package logsink adapts zerolog as a log/slog backend so the dispatcher's
// service and error channels can write human-friendly console output.
package logsink

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type field struct {
	key   string
	value slog.Value
}

// Handler is an slog.Handler that writes through a zerolog.Logger.
type Handler struct {
	logger zerolog.Logger
	fields []field
	prefix string
}

// NewHandler wraps logger. Level filtering follows the zerolog logger.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

// NewConsoleLogger returns an slog.Logger printing zerolog console lines to w,
// tagged with the given app name.
func NewConsoleLogger(w io.Writer, app string, level slog.Level) *slog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	zl := zerolog.New(output).Level(zerologLevel(level)).With().Timestamp().Str("app", app).Logger()
	return slog.New(NewHandler(zl))
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return zerologLevel(level) >= h.logger.GetLevel()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	ev := h.logger.WithLevel(zerologLevel(rec.Level))
	if ev == nil {
		return nil
	}
	for _, f := range h.fields {
		addValue(ev, f.key, f.value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		addAttr(ev, h.prefix, a)
		return true
	})
	ev.Msg(rec.Message)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, a := range attrs {
		clone.fields = append(clone.fields, flatten(h.prefix, a)...)
	}
	return clone
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = joinKey(h.prefix, name)
	return clone
}

func (h *Handler) clone() *Handler {
	fields := make([]field, len(h.fields))
	copy(fields, h.fields)
	return &Handler{logger: h.logger, fields: fields, prefix: h.prefix}
}

func flatten(prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return nil
	}
	if a.Value.Kind() == slog.KindGroup {
		var out []field
		for _, inner := range a.Value.Group() {
			out = append(out, flatten(joinKey(prefix, a.Key), inner)...)
		}
		return out
	}
	return []field{{key: joinKey(prefix, a.Key), value: a.Value}}
}

func addAttr(ev *zerolog.Event, prefix string, a slog.Attr) {
	for _, f := range flatten(prefix, a) {
		addValue(ev, f.key, f.value)
	}
}

func addValue(ev *zerolog.Event, key string, v slog.Value) {
	switch v.Kind() {
	case slog.KindString:
		ev.Str(key, v.String())
	case slog.KindInt64:
		ev.Int64(key, v.Int64())
	case slog.KindUint64:
		ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		ev.Float64(key, v.Float64())
	case slog.KindBool:
		ev.Bool(key, v.Bool())
	case slog.KindDuration:
		ev.Dur(key, v.Duration())
	case slog.KindTime:
		ev.Time(key, v.Time())
	default:
		if err, ok := v.Any().(error); ok {
			ev.AnErr(key, err)
			return
		}
		ev.Interface(key, v.Any())
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return strings.Join([]string{prefix, key}, ".")
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
