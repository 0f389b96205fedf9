package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// TestMain ensures the watcher goroutine started by watchLoggingConfig does
// not outlive its watcher's Close call.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatchLoggingConfig_StopsGoroutineOnClose(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".memory"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".memory", "config.json"), []byte(`{}`), 0644))

	watcher, err := watchLoggingConfig(ws)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(ws, ".memory", "config.json"), []byte(`{"debug_mode":true}`), 0644))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, watcher.Close())
	time.Sleep(50 * time.Millisecond)
}
