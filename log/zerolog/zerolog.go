// Package zerolog adapts a zerolog.Logger to cacheaside.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/cacheaside"
)

var _ cacheaside.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "cacheaside").Logger()}
}

func (z Logger) Debug(msg string, f cacheaside.Fields) { z.log(zerolog.DebugLevel, msg, f) }
func (z Logger) Info(msg string, f cacheaside.Fields)  { z.log(zerolog.InfoLevel, msg, f) }
func (z Logger) Warn(msg string, f cacheaside.Fields)  { z.log(zerolog.WarnLevel, msg, f) }
func (z Logger) Error(msg string, f cacheaside.Fields) { z.log(zerolog.ErrorLevel, msg, f) }

// a nil event means the level is disabled
func (z Logger) log(lvl zerolog.Level, msg string, f cacheaside.Fields) {
	e := z.L.WithLevel(lvl)
	if e == nil {
		return
	}
	if len(f) > 0 {
		e = e.Fields(map[string]any(f))
	}
	e.Msg(msg)
}
