package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Field is a structured logging attribute.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Duration records d in milliseconds so solve times compare across backends.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key + "_ms", Value: float64(d) / float64(time.Millisecond)}
}

// Error records err under the "error" key.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the structured logger handed to the solver, the worker pool and
// the RPC layer. Every backend adds the request_id carried by ctx.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// The empty string is info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config selects the slog backend. An unknown Level logs at info.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // json or text
	AddSource bool      // include source locations
	Output    io.Writer // defaults to stderr
}

// New builds a slog-backed Logger.
func New(cfg Config) Logger {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level.slogLevel(), AddSource: cfg.AddSource}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return &slogger{l: slog.New(requestIDHandler{h})}
}

// NewFromEnv reads LOG_LEVEL and LOG_FORMAT, defaulting to text at info.
func NewFromEnv() Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		AddSource: true,
	})
}

// Noop returns a logger that drops all logs.
func Noop() Logger { return noopLogger{} }

type slogger struct {
	l *slog.Logger
}

func (s *slogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = slog.Any(f.Key, f.Value)
	}
	return &slogger{l: s.l.With(args...)}
}

func (s *slogger) log(ctx context.Context, level Level, msg string, fields []Field) {
	if !s.l.Enabled(ctx, level.slogLevel()) {
		return
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	s.l.LogAttrs(ctx, level.slogLevel(), msg, attrs...)
}

func (s *slogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelDebug, msg, fields)
}
func (s *slogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelInfo, msg, fields)
}
func (s *slogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelWarn, msg, fields)
}
func (s *slogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelError, msg, fields)
}

// requestIDHandler stamps records with the request_id found on the context.
type requestIDHandler struct {
	slog.Handler
}

func (h requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(requestIDField, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestIDHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestIDHandler) WithGroup(name string) slog.Handler {
	return requestIDHandler{h.Handler.WithGroup(name)}
}

// Sink is the minimal log destination an embedding application can supply,
// for example a debugger pane.
type Sink interface {
	Log(level Level, message string)
}

// FromSink adapts a Sink to a Logger. Fields are rendered as key=value pairs
// after the message.
func FromSink(sink Sink) Logger {
	if sink == nil {
		return Noop()
	}
	return &sinkLogger{sink: sink}
}

type sinkLogger struct {
	sink   Sink
	fields []Field
}

func (s *sinkLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(s.fields)+len(fields))
	merged = append(merged, s.fields...)
	return &sinkLogger{sink: s.sink, fields: append(merged, fields...)}
}

func (s *sinkLogger) emit(ctx context.Context, level Level, msg string, fields []Field) {
	var b strings.Builder
	b.WriteString(msg)
	for _, group := range [][]Field{s.fields, fields} {
		for _, f := range group {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fmt.Fprintf(&b, " %s=%s", requestIDField, id)
	}
	s.sink.Log(level, b.String())
}

func (s *sinkLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, LevelDebug, msg, fields)
}
func (s *sinkLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, LevelInfo, msg, fields)
}
func (s *sinkLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, LevelWarn, msg, fields)
}
func (s *sinkLogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, LevelError, msg, fields)
}

type noopLogger struct{}

func (noopLogger) With(...Field) Logger                    { return noopLogger{} }
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
