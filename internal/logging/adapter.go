package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog logger through the key-value Logger interface
// used by the core packages.
type Adapter struct {
	logger *zerolog.Logger
}

// NewAdapter wraps logger. A nil logger uses the global Logger at call time.
func NewAdapter(logger *zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.emit(a.target().Debug(), msg, keysAndValues)
}

func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.emit(a.target().Info(), msg, keysAndValues)
}

func (a *Adapter) Warn(msg string, keysAndValues ...interface{}) {
	a.emit(a.target().Warn(), msg, keysAndValues)
}

func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.emit(a.target().Error(), msg, keysAndValues)
}

func (a *Adapter) target() *zerolog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return &Logger
}

func (a *Adapter) emit(ev *zerolog.Event, msg string, keysAndValues []interface{}) {
	if ev == nil {
		return
	}
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			ev = ev.Interface("extra", keysAndValues[i])
			break
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
