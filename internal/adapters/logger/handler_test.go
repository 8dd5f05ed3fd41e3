package logger_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/parcel/internal/adapters/logger"
)

func newTestHandler(t *testing.T, level slog.Level) (*logger.PrettyHandler, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	return logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}), buf
}

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		want  string
	}{
		{name: "info", level: slog.LevelInfo, want: "message\n"},
		{name: "warn", level: slog.LevelWarn, want: "! message\n"},
		{name: "error", level: slog.LevelError, want: "✗ message\n"},
		{name: "debug filtered", level: slog.LevelDebug, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, buf := newTestHandler(t, slog.LevelInfo)
			slog.New(h).Log(t.Context(), tt.level, "message")

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	h, buf := newTestHandler(t, slog.LevelInfo)

	lg := slog.New(h).With("package", "serif")
	lg.Info("installed", "size", 42)

	assert.Equal(t, "[serif] installed size=42\n", buf.String())
}

func TestPrettyHandler_PackagePrefixFollowsGlyph(t *testing.T) {
	h, buf := newTestHandler(t, slog.LevelInfo)

	slog.New(h).Warn("receipt replaced", logger.PackageKey, "bold")

	assert.Equal(t, "! [bold] receipt replaced\n", buf.String())
}

func TestPrettyHandler_GroupedPackageIsAnAttribute(t *testing.T) {
	h, buf := newTestHandler(t, slog.LevelInfo)

	slog.New(h).WithGroup("upgrade").Info("skipped", logger.PackageKey, "bold")

	assert.Equal(t, "skipped upgrade.package=bold\n", buf.String())
}

func TestPrettyHandler_Groups(t *testing.T) {
	h, buf := newTestHandler(t, slog.LevelInfo)

	lg := slog.New(h).WithGroup("catalog").WithGroup("diff")
	lg.Info("updated", "added", 2)

	assert.Equal(t, "updated catalog.diff.added=2\n", buf.String())
}

func TestPrettyHandler_EmptyGroupIsIgnored(t *testing.T) {
	h, _ := newTestHandler(t, slog.LevelInfo)

	assert.Same(t, h, h.WithGroup(""))
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h, _ := newTestHandler(t, slog.LevelWarn)

	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelWarn))
	assert.True(t, h.Enabled(t.Context(), slog.LevelError))
}

func TestPrettyHandler_NilWriter(t *testing.T) {
	require.NotPanics(t, func() {
		_ = logger.NewPrettyHandler(nil, nil)
	})
}

func TestPrettyHandler_WriteError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	h := logger.NewPrettyHandler(brokenWriter{}, nil)
	err := h.Handle(t.Context(), slog.NewRecord(time.Time{}, slog.LevelInfo, "lost", 0))

	assert.ErrorIs(t, err, assert.AnError)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, assert.AnError }
