package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, b Backend, container, object, content string) {
	t.Helper()

	w, err := b.Writer(container, object)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func read(t *testing.T, b Backend, container, object string) string {
	t.Helper()

	r, err := b.Reader(container, object)
	require.NoError(t, err)
	defer r.Close()

	payload, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(payload)
}

func TestFileSystemWriter(t *testing.T) {
	b := NewFileSystem(t.TempDir())

	write(t, b, "site", "assets/a.js", "v1")
	assert.Equal(t, "v1", read(t, b, "site", "assets/a.js"))

	w, err := b.Writer("site", "assets/a.js")
	require.NoError(t, err)
	_, err = io.WriteString(w, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v1", read(t, b, "site", "assets/a.js"), "not visible before close")
	require.NoError(t, w.Close())
	assert.Equal(t, "v2", read(t, b, "site", "assets/a.js"))

	w, err = b.Writer("site", "assets/a.js")
	require.NoError(t, err)
	_, err = io.WriteString(w, "v3")
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	assert.Equal(t, "v2", read(t, b, "site", "assets/a.js"))
}

func TestFileSystemRemoveAndCleanup(t *testing.T) {
	workspace := t.TempDir()
	b := NewFileSystem(workspace)

	write(t, b, "site", "a/b/c.txt", "c")
	write(t, b, "site", "d.txt", "d")
	_, err := b.Writer("site", "e.txt") // Never closed.
	require.NoError(t, err)

	require.NoError(t, b.Remove("site", "a/b/c.txt"))
	_, err = b.Reader("site", "a/b/c.txt")
	assert.Error(t, err)

	require.NoError(t, b.Cleanup())
	_, err = os.Stat(filepath.Join(workspace, "site", "a"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "d", read(t, b, "site", "d.txt"))

	partials, err := filepath.Glob(filepath.Join(workspace, "site", "*"+partialext))
	require.NoError(t, err)
	assert.Empty(t, partials)

	require.NoError(t, b.RemoveAll("site"))
	_, err = os.Stat(filepath.Join(workspace, "site"))
	assert.True(t, os.IsNotExist(err))
}
