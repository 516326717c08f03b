package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg carries a slog record into the status line.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears the status line once the record is stale.
type logRecordFadeMsg struct {
	at time.Time
}

const logRecordFadeDelay = 5 * time.Second

// LogHandler routes records at or above level into the running program.
// Records arriving before SetProgram are dropped: the terminal belongs to
// bubbletea, so nothing may be written to stderr while it runs.
// Handlers derived with WithAttrs/WithGroup share the program pointer.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	groups  []string
}

func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{level: level, program: &atomic.Pointer[tea.Program]{}}
}

func (h *LogHandler) SetProgram(program *tea.Program) {
	h.program.Store(program)
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}
	program.Send(logRecordMsg{Summary: h.summary(record), Level: record.Level})
	return nil
}

// summary renders "message (key=value, ...)", handler attrs first.
func (h *LogHandler) summary(record slog.Record) string {
	var parts []string
	for _, attr := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	prefix := h.groupPrefix()
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

// WithAttrs qualifies attrs with the groups opened so far.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := h.groupPrefix()
	merged := sliceClone(h.attrs)
	for _, attr := range attrs {
		merged = append(merged, slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
	}
	return &LogHandler{
		level:   h.level,
		program: h.program,
		attrs:   merged,
		groups:  sliceClone(h.groups),
	}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{
		level:   h.level,
		program: h.program,
		attrs:   sliceClone(h.attrs),
		groups:  append(sliceClone(h.groups), name),
	}
}

func (h *LogHandler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// sliceClone keeps derived handlers from aliasing their parent's slices.
func sliceClone[T any](source []T) []T {
	if source == nil {
		return nil
	}
	result := make([]T, len(source))
	copy(result, source)
	return result
}
