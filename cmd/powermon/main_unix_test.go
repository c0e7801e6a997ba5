//go:build unix

package main

import (
	"encoding/csv"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStopsOnSIGTERM(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "readings.csv")
	pidPath := filepath.Join(dir, "powermon.pid")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "powermon.toml"), nil, 0o600))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan int, 1)
	go func() {
		done <- run([]string{
			"powermon",
			"--config", filepath.Join(dir, "powermon.toml"),
			"--simulate", "512",
			"--sample-rate-hz", "1000",
			"--averaging-window", "1",
			"--csv-flush-interval", "100000",
			"--csv-path", csvPath,
			"--pid-file", pidPath,
			"--log-level", "error",
		}, sigs)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(pidPath)
		return err == nil
	}, 5*time.Second, 5*time.Millisecond, "run never started")
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case code := <-done:
		require.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after SIGTERM")
	}

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(rows), 1, "rows buffered below the flush interval are written on shutdown")
	assert.Equal(t, []string{"pi-001", "machine-A", "0.5839", "230.0", "402.91", "running"}, rows[1][1:])

	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err), "pid file is removed on exit")
}
