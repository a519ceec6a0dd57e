package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/javi11/parchive/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith(t *testing.T) {
	ctx := With(context.Background(), "set", "movie", "files", 3)
	ctx = With(ctx, "set", "other")

	attrs := Attrs(ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, "files", attrs[0].Key)
	assert.Equal(t, "set", attrs[1].Key)
	assert.Equal(t, "other", attrs[1].Value.String())

	assert.Nil(t, Attrs(context.Background()))
}

func TestHandler_AddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapHandler(slog.NewTextHandler(&buf, nil)))

	log.InfoContext(With(context.Background(), "set", "movie"), "verified")

	assert.Contains(t, buf.String(), "set=movie")
	assert.Contains(t, buf.String(), "msg=verified")
}

func TestSetupLogRotation(t *testing.T) {
	var buf bytes.Buffer
	l := SetupLogRotation(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	defer l.Close()

	l.Logger.Info("hidden")
	l.Logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	l.Level.SetLevel(slog.LevelDebug)
	l.Logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
