package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	_, err := store.Open(ctx, "abc_bilancio.pdf")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, store.Save(ctx, "abc_bilancio.pdf", []byte("%PDF-1.4"), "application/pdf"))

	rc, err := store.Open(ctx, "abc_bilancio.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Save(ctx, "abc_bilancio.pdf", []byte("second"), "application/pdf"))
	rc, err = store.Open(ctx, "abc_bilancio.pdf")
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "second", string(data), "save overwrites")

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, store.Delete(ctx, "abc_bilancio.pdf"))
	require.NoError(t, store.Delete(ctx, "abc_bilancio.pdf"), "deleting twice is fine")

	_, err = store.Open(ctx, "abc_bilancio.pdf")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../secret", "a/b.pdf", `a\b.pdf`} {
		_, err := store.Open(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.ErrorIs(t, store.Save(ctx, name, nil, ""), ErrInvalidName, name)
	}
}

func TestEnsureDir(t *testing.T) {
	base := t.TempDir()

	dir, err := EnsureDir(filepath.Join(base, "uploads"), "uploads")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "uploads"), dir)
	assert.DirExists(t, dir)
	assert.True(t, Writable(dir))
}

func TestEnsureDirFallsBack(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)

	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A path below a regular file cannot be created.
	name := "outputs-" + filepath.Base(base)
	dir, err := EnsureDir(filepath.Join(blocker, "outputs"), name)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	assert.NotEqual(t, filepath.Join(blocker, "outputs"), dir)
	assert.DirExists(t, dir)
}

func TestWritableMissingDir(t *testing.T) {
	assert.False(t, Writable(filepath.Join(t.TempDir(), "missing")))
}

func TestGCSStoreObjectName(t *testing.T) {
	s := &GCSStore{bucketName: "out", prefix: "bilanci"}
	assert.Equal(t, "bilanci/x.pdf", s.objectName("x.pdf"))
	assert.Equal(t, "gs://out/bilanci/x.pdf", s.Location("x.pdf"))

	s.prefix = ""
	assert.Equal(t, "x.pdf", s.objectName("x.pdf"))
}
