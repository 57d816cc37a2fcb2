// internal/observability/logger_test.go
package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/crossbrowse/internal/config"
)

// lockedBuffer is a WriteSyncer over a bytes.Buffer that is safe for concurrent use.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ zapcore.WriteSyncer = (*lockedBuffer)(nil)

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "crossbrowse",
			Colors:      config.ColorConfig{Info: "green"},
		}, out)
		GetLogger().Info("Session started.", zap.String("session", "Windows 10 Chrome Test"))
		Sync()

		output := out.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
		assert.Contains(t, output, "crossbrowse.")
		assert.Contains(t, output, "Session started.")
	})

	t.Run("should initialize JSON logger and respect level", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "svc"}, out)
		logger := GetLogger()
		logger.Info("dropped")
		logger.Warn("kept", zap.String("step", "open-sign-in"))
		Sync()

		lines := bytes.Split(bytes.TrimSpace([]byte(out.String())), []byte("\n"))
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal(lines[0], &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "open-sign-in", entry["step"])
		assert.Equal(t, "svc", entry["logger"])
	})

	t.Run("should fall back to info on an invalid level", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, out)
		GetLogger().Debug("hidden")
		GetLogger().Info("shown")
		Sync()

		assert.NotContains(t, out.String(), "hidden")
		assert.Contains(t, out.String(), "shown")
	})

	t.Run("should write JSON to the rotating log file", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		logFile := filepath.Join(t.TempDir(), "run.log")

		Initialize(config.LoggerConfig{Level: "info", Format: "console", LogFile: logFile, MaxSize: 1}, &lockedBuffer{})
		GetLogger().Info("to file")
		Sync()

		f, err := os.Open(logFile)
		require.NoError(t, err)
		defer f.Close()
		scanner := bufio.NewScanner(f)
		require.True(t, scanner.Scan())
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		assert.Equal(t, "to file", entry["msg"])
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		first, second := &lockedBuffer{}, &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)
		GetLogger().Info("once")
		Sync()

		assert.Contains(t, first.String(), "once")
		assert.Empty(t, second.String())
	})
}

func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("fallback works") })
}

func TestForSession(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &lockedBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, out)

	ForSession(GetLogger(), "macOS Ventura Firefox Test").Info("tagged")
	Sync()
	assert.Contains(t, out.String(), `"session":"macOS Ventura Firefox Test"`)
}
