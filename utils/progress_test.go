package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banks-etl/models"
)

func TestProgressLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code_log.txt")
	p := NewProgressLog(path)
	p.now = func() time.Time { return time.Date(2023, 9, 8, 9, 16, 35, 0, time.Local) }

	require.NoError(t, p.Log("Preliminaries complete. Initiating ETL process"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2023-09-08 09:16:35 : Preliminaries complete. Initiating ETL process\n", string(data))
}

func TestProgressLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "code_log.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("earlier run\n"), 0o644))

	p := NewProgressLog(path)
	require.NoError(t, p.Log("first"))
	require.NoError(t, p.Log("second"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "earlier run", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " : first"))
	assert.True(t, strings.HasSuffix(lines[2], " : second"))
}

func TestProgressLogWriteFailure(t *testing.T) {
	// A directory in place of the file makes the open fail.
	path := t.TempDir()
	err := NewProgressLog(path).Log("boom")
	assert.ErrorIs(t, err, models.ErrIO)
}
