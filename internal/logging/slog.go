package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var (
	osStderr io.Writer = os.Stderr
	osPipe             = os.Pipe
)

// Options selects the sinks a SlogManager fans out to.
type Options struct {
	// File receives text logs. When nil, logs go to stderr instead.
	File  io.Writer
	Level string
	// Provider enables the OTel bridge when non-nil.
	Provider *sdklog.LoggerProvider
	// Graylog receives JSON records, typically a *gelf.Writer.
	Graylog io.Writer
	// SessionID, when set, stamps every record with the session and the
	// click mode returned by Mode (which may be nil).
	SessionID string
	Mode      func() string
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	sinks    []string
	failures atomic.Int64
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup (re)builds the logger. Calling it again replaces every sink.
func (m *SlogManager) Setup(opts Options) {
	lvl := parseLevel(opts.Level)
	m.logProvider = opts.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var sinks []sink

	// stdout carries command output, so the console sink is stderr
	if opts.File != nil {
		sinks = append(sinks, sink{"file", slog.NewTextHandler(opts.File, handlerOpts)})
	} else {
		sinks = append(sinks, sink{"console", slog.NewTextHandler(osStderr, handlerOpts)})
	}

	if opts.Graylog != nil {
		sinks = append(sinks, sink{"graylog", slog.NewJSONHandler(opts.Graylog, handlerOpts)})
	}

	if opts.Provider != nil {
		sinks = append(sinks, sink{"otel", otelslog.NewHandler("missionmap", otelslog.WithLoggerProvider(opts.Provider))})
	}

	fanout := newFanout(&m.failures, sinks...)
	m.sinks = fanout.names()

	var handler slog.Handler = fanout
	if opts.SessionID != "" {
		handler = NewSessionHandler(handler, opts.SessionID, opts.Mode)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", opts.Level, "sinks", m.sinks)
}

// Sinks names the destinations the current logger writes to.
func (m *SlogManager) Sinks() []string {
	return m.sinks
}

// SinkFailures counts records a sink failed to write since the manager
// was created.
func (m *SlogManager) SinkFailures() int64 {
	return m.failures.Load()
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
