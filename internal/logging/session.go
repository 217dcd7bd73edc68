package logging

import (
	"context"
	"log/slog"
)

// SessionInfo reports the save and resource pack currently loaded. Either may
// be empty between sessions.
type SessionInfo interface {
	SaveName() string
	PackName() string
}

// SessionFuncs adapts two getters to SessionInfo.
type SessionFuncs struct {
	Save func() string
	Pack func() string
}

func (f SessionFuncs) SaveName() string { return call(f.Save) }
func (f SessionFuncs) PackName() string { return call(f.Pack) }

func call(fn func() string) string {
	if fn == nil {
		return ""
	}
	return fn()
}

// SessionHandler stamps every record with the save and pack of the live session.
// The lookup happens per record because sessions open and close under one logger.
type SessionHandler struct {
	inner   slog.Handler
	session SessionInfo
}

func NewSessionHandler(inner slog.Handler, session SessionInfo) *SessionHandler {
	return &SessionHandler{inner: inner, session: session}
}

func (h *SessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *SessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.session != nil {
		if save := h.session.SaveName(); save != "" {
			r.AddAttrs(slog.String("save", save))
		}
		if pack := h.session.PackName(); pack != "" {
			r.AddAttrs(slog.String("pack", pack))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *SessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionHandler{inner: h.inner.WithAttrs(attrs), session: h.session}
}

func (h *SessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SessionHandler{inner: h.inner.WithGroup(name), session: h.session}
}
