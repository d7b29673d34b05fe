package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// sink is one named log destination: console, file, graylog or otel.
type sink struct {
	name    string
	handler slog.Handler
}

// fanoutHandler delivers every record to each sink that accepts its level.
// A failing sink never blocks the others. Failures are counted on a
// counter shared by all derived handlers.
type fanoutHandler struct {
	sinks    []sink
	failures *atomic.Int64
}

func newFanout(failures *atomic.Int64, sinks ...sink) *fanoutHandler {
	valid := make([]sink, 0, len(sinks))
	for _, s := range sinks {
		if s.handler != nil {
			valid = append(valid, s)
		}
	}
	if failures == nil {
		failures = &atomic.Int64{}
	}
	return &fanoutHandler{sinks: valid, failures: failures}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.handler.Handle(ctx, r.Clone()); err != nil {
			f.failures.Add(1)
			errs = append(errs, fmt.Errorf("%s sink: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) *fanoutHandler {
	sinks := make([]sink, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = sink{name: s.name, handler: fn(s.handler)}
	}
	return &fanoutHandler{sinks: sinks, failures: f.failures}
}

// names lists the active sinks in delivery order.
func (f *fanoutHandler) names() []string {
	out := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		out[i] = s.name
	}
	return out
}
