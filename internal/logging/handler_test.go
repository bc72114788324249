package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	now := time.Now()
	logger.Info("feature parsed", "id", "org.eclipse.platform")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "feature parsed")
	assert.Contains(t, output, "id=org.eclipse.platform")
	assert.Contains(t, output, now.Format("15:04"))
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).With("site", "file:/opt/eclipse/")

	logger.Info("detected", "features", 2)

	output := buf.String()
	assert.Contains(t, output, "site=file:/opt/eclipse/")
	assert.Contains(t, output, "features=2")
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).WithGroup("stamp")

	logger.Info("computed", "features", 10, slog.Group("dir", "mtime", 5))

	output := buf.String()
	assert.Contains(t, output, "stamp.features=10")
	assert.Contains(t, output, "stamp.dir.mtime=5")
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestHandler_TraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	logger.Log(context.Background(), LevelTrace, "stat", "path", "/tmp/x")

	assert.Contains(t, buf.String(), "TRACE")
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("boom") }

func TestMultiHandler(t *testing.T) {
	var text, jsonOut bytes.Buffer
	h := NewMultiHandler(
		NewHandler(&text, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&jsonOut, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("config", "platform.xml")

	logger.Debug("debug only")
	logger.Warn("both")

	assert.NotContains(t, text.String(), "debug only")
	assert.Contains(t, text.String(), "both")
	assert.Contains(t, jsonOut.String(), "debug only")
	assert.Contains(t, jsonOut.String(), `"config":"platform.xml"`)
}

func TestMultiHandler_FirstError(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(
		failingHandler{slog.NewTextHandler(&buf, nil)},
		slog.NewTextHandler(&buf, nil),
	)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0))
	assert.EqualError(t, err, "boom")
	assert.Contains(t, buf.String(), "msg")
}
