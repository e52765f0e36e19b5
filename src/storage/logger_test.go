package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, string, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	var console bytes.Buffer
	logger.SetConsole(&console)
	logger.now = func() time.Time { return time.Date(2021, 1, 1, 8, 0, 0, 0, time.UTC) }
	return logger, path, &console
}

func TestLoggerWritesFileAndConsole(t *testing.T) {
	logger, path, console := newTestLogger(t)

	logger.Info("解析完成")
	logger.Debug("不会输出")
	logger.SetLevel(DEBUG)
	logger.Debug("调试信息")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "[2021-01-01 08:00:00] INFO: 解析完成\n[2021-01-01 08:00:00] DEBUG: 调试信息\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, want, console.String())
}

func TestLoggerRotate(t *testing.T) {
	logger, path, _ := newTestLogger(t)

	logger.Warning(strings.Repeat("x", 64))
	require.NoError(t, logger.CheckRotate("2 * 16"))

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "app.20210101080000.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	logger.Error("after")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ERROR: after")
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(512), eval("512"))
	assert.Zero(t, eval("ten"))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARNING, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
