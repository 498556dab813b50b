package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StandardizesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelTrace)

	logger.Error("boom", "error", errors.New("bad"))
	logger.Log(context.Background(), LevelTrace, "fine grained")
	logger.Log(context.Background(), LevelCritical, "very bad")

	out := buf.String()
	assert.Contains(t, out, "err=bad")
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "level=CRITICAL")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
