package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

// Console palette. Info and debug lines stay muted so sync progress does not
// drown out warnings about unreachable peers or rejected entries.
const (
	mutedColor = "#667085"
	errorColor = "#D93025"
	warnColor  = "#F59E0B"
)

// ConsoleHandler renders records as one colored line each: an optional level
// marker, the message, then key=value pairs.
type ConsoleHandler struct {
	out    *termenv.Output
	level  slog.Leveler
	prefix string   // open groups, each followed by "."
	bound  []string // pairs from WithAttrs, already rendered
}

// NewConsoleHandler writes to w, or to stderr when w is nil. NO_COLOR turns
// colors off.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	profile := termenv.EnvColorProfile()
	if os.Getenv("NO_COLOR") != "" {
		profile = termenv.Ascii
	}

	return &ConsoleHandler{
		out:   termenv.NewOutput(w, termenv.WithProfile(profile), termenv.WithTTY(true)),
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	marker, color := levelStyle(r.Level)

	var line strings.Builder
	line.WriteString(marker)
	line.WriteString(r.Message)
	for _, pair := range h.bound {
		line.WriteByte(' ')
		line.WriteString(pair)
	}
	r.Attrs(func(attr slog.Attr) bool {
		if pair := renderPair(h.prefix, attr); pair != "" {
			line.WriteByte(' ')
			line.WriteString(pair)
		}
		return true
	})

	styled := h.out.String(line.String()).Foreground(termenv.RGBColor(color))
	_, err := h.out.WriteString(styled.String() + "\n")
	return err
}

// WithAttrs implements slog.Handler. The pairs keep the groups open at the
// time of the call.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]string, len(h.bound), len(h.bound)+len(attrs))
	copy(bound, h.bound)
	for _, attr := range attrs {
		if pair := renderPair(h.prefix, attr); pair != "" {
			bound = append(bound, pair)
		}
	}

	next := *h
	next.bound = bound
	return &next
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func levelStyle(level slog.Level) (marker, color string) {
	switch {
	case level >= slog.LevelError:
		return "✗ ", errorColor
	case level >= slog.LevelWarn:
		return "! ", warnColor
	default:
		return "", mutedColor
	}
}

// renderPair formats attr as key=value. Empty attributes render as "".
func renderPair(prefix string, attr slog.Attr) string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return ""
	}
	return prefix + attr.Key + "=" + attr.Value.String()
}
