package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetupLoggerConsoleSplit(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, closers, err := setupLogger("info", "", &stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, closers)

	logger.Debug("hidden")
	logger.Info("typed", "key", "F2")
	logger.Error("could not connect to host")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "key=F2")
	assert.NotContains(t, stdout.String(), "could not connect")
	assert.Contains(t, stderr.String(), "could not connect to host")
	assert.NotContains(t, stderr.String(), "typed")
}

func TestSetupLoggerFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "gadgetkb.log")
	logger, closers, err := setupLogger("debug", path, &stdout, &stderr)
	require.NoError(t, err)
	require.Len(t, closers, 1)

	logger.With("sink", "gadget:/dev/hidg0").Debug("key sent")
	require.NoError(t, closers[0].Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "key sent")
	assert.Contains(t, string(data), "sink=gadget:/dev/hidg0")
	assert.Contains(t, stderr.String(), "key sent")
	assert.Empty(t, stdout.String())

	_, _, err = setupLogger("info", filepath.Join(t.TempDir(), "missing", "x.log"), &stdout, &stderr)
	assert.Error(t, err)
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	raw := NewRaw(&buf).(*rawLogger)
	raw.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	raw.Log("gadget:/dev/hidg0", []byte{0x02, 0x00, 0x0b, 0, 0, 0, 0, 0})
	raw.Log("gadget:/dev/hidg0", make([]byte, 8))
	raw.Log("gadget:/dev/hidg0", nil)

	assert.Equal(t,
		"2024/01/02 03:04:05.000 gadget:/dev/hidg0 press   8 bytes, hex: 02 00 0b 00 00 00 00 00\n"+
			"2024/01/02 03:04:05.000 gadget:/dev/hidg0 release 8 bytes, hex: 00 00 00 00 00 00 00 00\n",
		buf.String())

	assert.NotPanics(t, func() { NewRaw(nil).Log("x", []byte{1}) })
}
