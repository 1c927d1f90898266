package build

import (
	"context"
	"errors"
	"log/slog"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// HandlerSet is a btclog.Handler that fans records out to several handlers,
// typically the console and the rotating log file. A record reaches every
// handler enabled at its level, and a failing handler does not starve the
// others.
type HandlerSet struct {
	level btclog.Level
	set   []btclogv2.Handler
}

// NewHandlerSet constructs a HandlerSet at the Info level.
func NewHandlerSet(handlers ...btclogv2.Handler) *HandlerSet {
	h := &HandlerSet{set: handlers}
	h.SetLevel(btclog.LevelInfo)

	return h
}

// Enabled reports whether any handler accepts records at level.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Enabled(ctx context.Context, level slog.Level) bool {
	return anyEnabled(ctx, h.slogHandlers(), level)
}

// Handle dispatches the record to every enabled handler.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Handle(ctx context.Context, record slog.Record) error {
	return handleAll(ctx, h.slogHandlers(), record)
}

// WithAttrs returns a handler that adds attrs to every record.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return reducedSet(h.slogHandlers()).WithAttrs(attrs)
}

// WithGroup returns a handler that nests attributes under name.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithGroup(name string) slog.Handler {
	return reducedSet(h.slogHandlers()).WithGroup(name)
}

// SubSystem returns a set whose handlers are tagged with the subsystem.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SubSystem(tag string) btclogv2.Handler {
	return h.derive(func(handler btclogv2.Handler) btclogv2.Handler {
		return handler.SubSystem(tag)
	})
}

// WithPrefix returns a set whose handlers prefix every message.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) WithPrefix(prefix string) btclogv2.Handler {
	return h.derive(func(handler btclogv2.Handler) btclogv2.Handler {
		return handler.WithPrefix(prefix)
	})
}

// SetLevel changes the level of every handler.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

// Level returns the level last set on the whole set.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) Level() btclog.Level {
	return h.level
}

func (h *HandlerSet) derive(
	f func(btclogv2.Handler) btclogv2.Handler) *HandlerSet {

	out := &HandlerSet{
		level: h.level,
		set:   make([]btclogv2.Handler, len(h.set)),
	}
	for i, handler := range h.set {
		out.set[i] = f(handler)
	}

	return out
}

func (h *HandlerSet) slogHandlers() []slog.Handler {
	out := make([]slog.Handler, len(h.set))
	for i, handler := range h.set {
		out[i] = handler
	}

	return out
}

// Ensure HandlerSet implements btclog.Handler at compile time.
var _ btclogv2.Handler = (*HandlerSet)(nil)

// reducedSet is the plain slog.Handler produced once attributes or groups
// are attached, since those return slog.Handlers rather than btclog ones.
type reducedSet []slog.Handler

// Enabled reports whether any handler accepts records at level.
func (r reducedSet) Enabled(ctx context.Context, level slog.Level) bool {
	return anyEnabled(ctx, r, level)
}

// Handle dispatches the record to every enabled handler.
func (r reducedSet) Handle(ctx context.Context, record slog.Record) error {
	return handleAll(ctx, r, record)
}

// WithAttrs returns a handler that adds attrs to every record.
func (r reducedSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(reducedSet, len(r))
	for i, handler := range r {
		out[i] = handler.WithAttrs(attrs)
	}

	return out
}

// WithGroup returns a handler that nests attributes under name.
func (r reducedSet) WithGroup(name string) slog.Handler {
	out := make(reducedSet, len(r))
	for i, handler := range r {
		out[i] = handler.WithGroup(name)
	}

	return out
}

// Ensure reducedSet implements slog.Handler at compile time.
var _ slog.Handler = reducedSet(nil)

func anyEnabled(ctx context.Context, set []slog.Handler,
	level slog.Level) bool {

	for _, handler := range set {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func handleAll(ctx context.Context, set []slog.Handler,
	record slog.Record) error {

	var errs []error
	for _, handler := range set {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
