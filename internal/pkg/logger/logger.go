package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog behind a variadic key/value API so call sites read as
// log.Info("msg", "key", value, ...).
type Logger struct {
	base zerolog.Logger
}

func NewLogger() *Logger {
	return NewLoggerWithOutput(os.Stdout)
}

func NewLoggerWithOutput(w io.Writer) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	base := zerolog.New(w).With().Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 2).Logger()
	return &Logger{base: base}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.emit(l.base.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.emit(l.base.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.emit(l.base.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.emit(l.base.Error(), msg, fields)
}

func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.emit(l.base.Fatal(), msg, fields)
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{base: l.base.With().Interface(key, value).Logger()}
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields []interface{}) {
	if len(fields)%2 != 0 {
		fields = fields[:len(fields)-1]
	}

	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, fields[i+1])
	}

	ev.Msg(msg)
}
