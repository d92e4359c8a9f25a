package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.WithField("session", "s-1").WithFields(map[string]any{"step": 3}).Info("Clicked", "bx_id", "bx-4")
	l.Debug("plain")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "Clicked", entries[0].Message)
	assert.Equal(t, "s-1", ctx["session"])
	assert.EqualValues(t, 3, ctx["step"])
	assert.Equal(t, "bx-4", ctx["bx_id"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestNewZap_WritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerAdapter(Options{Level: "debug", Dir: dir, Task: "find the contact email!"})
	require.NoError(t, err)

	l.Warn("Step budget exhausted", "maxSteps", 25)
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*_find_the_contact_email.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Step budget exhausted"`)
	assert.Contains(t, string(data), `"maxSteps":25`)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "task", sanitize("!!!"))
	assert.Equal(t, "a_b-c", sanitize("a b-c"))
	assert.Len(t, sanitize(string(make([]byte, 100))+"x"), 1)
}
