package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRetriesAfterWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.csv")
	require.NoError(t, os.WriteFile(path, nil, defaultFilePerm))

	readOnly, err := os.Open(path)
	require.NoError(t, err)
	repo := &csvRepository{path: path, file: readOnly}

	rows := [][]string{{"a", "1"}, {"b", "2"}}
	err = repo.Append(rows)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrPersistence))
	require.NoError(t, readOnly.Close())

	writable, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	require.NoError(t, err)
	repo.file = writable

	require.NoError(t, repo.Append(rows))
	require.NoError(t, repo.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,1\nb,2\n", string(data))
}
