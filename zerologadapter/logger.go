// File: zerologadapter/logger.go
// Package zerologadapter adapts api.LogFunc to github.com/rs/zerolog,
// the logging library the rest of this retrieval pack reaches for.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on danmuck-edgectl's internal/observability/logger.go
// (zerolog.ConsoleWriter with a timestamp and an app field), extended with
// isatty/colorable the way zerolog's own documented console setup does:
// color output only when stdout is actually a terminal, with colorable
// wrapping so ANSI codes render correctly on Windows consoles too.
package zerologadapter

import (
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/tsingakbar/tcp-pubsub/api"
)

// New builds an api.LogFunc backed by a zerolog console writer tagged with
// app. Output is colorized only when stdout is a terminal.
func New(app string) api.LogFunc {
	out := os.Stdout
	noColor := !isatty.IsTerminal(out.Fd())

	writer := zerolog.ConsoleWriter{
		Out:     colorable.NewColorable(out),
		NoColor: noColor,
	}
	logger := zerolog.New(writer).With().Timestamp().Str("app", app).Logger()

	return func(level api.Level, message string) {
		event := eventForLevel(logger, level)
		event.Msg(message)
	}
}

func eventForLevel(logger zerolog.Logger, level api.Level) *zerolog.Event {
	switch level {
	case api.LevelDebugVerbose, api.LevelDebug:
		return logger.Debug()
	case api.LevelInfo:
		return logger.Info()
	case api.LevelWarning:
		return logger.Warn()
	case api.LevelError:
		return logger.Error()
	case api.LevelFatal:
		return logger.Error() // Fatal would os.Exit; the caller owns process lifecycle.
	default:
		return logger.Info()
	}
}
