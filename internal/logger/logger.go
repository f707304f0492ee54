package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

func Init() {
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// New wraps a handler in a logger; used by tests to capture output.
func New(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func NewJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}

func ensure() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

func Info(msg string, kv ...any) {
	ensure().Info(msg, kv...)
}

func Infof(format string, v ...any) {
	ensure().Info(fmt.Sprintf(format, v...))
}

func Error(msg string, kv ...any) {
	ensure().Error(msg, kv...)
}

func Errorf(format string, v ...any) {
	ensure().Error(fmt.Sprintf(format, v...))
}

func Debug(msg string, kv ...any) {
	ensure().Debug(msg, kv...)
}

func Debugf(format string, v ...any) {
	ensure().Debug(fmt.Sprintf(format, v...))
}

func Fatal(msg string) {
	ensure().Error(msg)
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	ensure().Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func WithError(err error) *slog.Logger {
	return ensure().With("error", err)
}

func WithFields(fields map[string]interface{}) *slog.Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return ensure().With(args...)
}
