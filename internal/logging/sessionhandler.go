package logging

import (
	"context"
	"log/slog"
)

// SessionHandler stamps every record with the planning session id and the
// click mode active at the moment the record is handled.
type SessionHandler struct {
	inner   slog.Handler
	session slog.Attr
	mode    func() string
}

// NewSessionHandler wraps inner. mode may be nil; an empty mode is omitted.
func NewSessionHandler(inner slog.Handler, sessionID string, mode func() string) *SessionHandler {
	return &SessionHandler{
		inner:   inner,
		session: slog.String("session", sessionID),
		mode:    mode,
	}
}

func (h *SessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *SessionHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.session)
	if h.mode != nil {
		if m := h.mode(); m != "" {
			r.AddAttrs(slog.String("mode", m))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *SessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionHandler{inner: h.inner.WithAttrs(attrs), session: h.session, mode: h.mode}
}

func (h *SessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SessionHandler{inner: h.inner.WithGroup(name), session: h.session, mode: h.mode}
}
