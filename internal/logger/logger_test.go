package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.log")

	w, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	// A second writer on the same path appends rather than truncating.
	w2, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w2.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(data))
}

func TestInitializeDuplicatesOutputToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.log")
	t.Setenv("LOG_FILE", path)

	Initialize("info")
	Logger.Info().Msg("file sink check")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "file sink check")
}
