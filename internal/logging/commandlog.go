package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CommandLogger writes dispatcher events through zerolog. The command name is
// always a string field and error values go under their key via AnErr.
type CommandLogger struct {
	logger zerolog.Logger
}

func NewCommandLogger(logger zerolog.Logger) *CommandLogger {
	return &CommandLogger{logger: logger}
}

func (l *CommandLogger) Debug(msg string, keysAndValues ...any) {
	l.write(zerolog.DebugLevel, msg, keysAndValues)
}

func (l *CommandLogger) Info(msg string, keysAndValues ...any) {
	l.write(zerolog.InfoLevel, msg, keysAndValues)
}

func (l *CommandLogger) Error(msg string, keysAndValues ...any) {
	l.write(zerolog.ErrorLevel, msg, keysAndValues)
}

// pairs with a non-string key are dropped, as is a trailing key without value
func (l *CommandLogger) write(level zerolog.Level, msg string, kv []any) {
	e := l.logger.WithLevel(level)
	if e == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		case string:
			e = e.Str(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
