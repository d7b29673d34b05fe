package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLevel maps a config level string onto zerolog.
func ZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds a console-format zerolog.Logger writing to out.
// Used by the storage layers, which log through zerolog.
func NewZerolog(out io.Writer, level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:          out,
		TimeFormat:   time.RFC3339,
		NoColor:      true,
		TimeLocation: time.UTC,
	}
	return zerolog.New(w).Level(ZerologLevel(level)).With().Timestamp().Logger()
}
