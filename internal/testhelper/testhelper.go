package testhelper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Context returns a cancellable context which is canceled when the test
// finishes.
func Context(tb testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)
	return ctx
}

// TempDir creates a temporary directory below the test directory which is
// removed when the test finishes.
func TempDir(tb testing.TB) string {
	if testDirectory == "" {
		panic("you must call testhelper.Run() before TempDir()")
	}

	tmpDir, err := os.MkdirTemp(testDirectory, "")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, os.RemoveAll(tmpDir))
	})

	return tmpDir
}

// MustReadFile returns the content of a file or fails at once.
func MustReadFile(tb testing.TB, filename string) []byte {
	content, err := os.ReadFile(filename)
	require.NoError(tb, err)
	return content
}

// MustWriteFile writes content to filename, creating parent directories.
func MustWriteFile(tb testing.TB, filename string, content []byte) {
	require.NoError(tb, os.MkdirAll(filepath.Dir(filename), 0755))
	require.NoError(tb, os.WriteFile(filename, content, 0644))
}

// WriteExecutable ensures that the parent directory exists, and writes an
// executable with provided content.
func WriteExecutable(tb testing.TB, path string, content []byte) string {
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(tb, os.WriteFile(path, content, 0755))
	return path
}

// AssertPathNotExists asserts true if the path doesn't exist, false otherwise
func AssertPathNotExists(tb testing.TB, path string) {
	_, err := os.Stat(path)
	assert.True(tb, os.IsNotExist(err), "file should not exist: %s", path)
}

// Chdir changes the working directory of the test process to dir and
// restores the previous one when the test finishes.
func Chdir(tb testing.TB, dir string) {
	previous, err := os.Getwd()
	require.NoError(tb, err)
	require.NoError(tb, os.Chdir(dir))
	tb.Cleanup(func() {
		require.NoError(tb, os.Chdir(previous))
	})
}
