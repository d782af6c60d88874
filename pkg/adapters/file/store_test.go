package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/studio/pkg/adapters/file"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SnapshotStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSnapshotStoreContract(t, store)
}

func TestFileStore_Overwrite(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	first := []domain.JournalEntry{{ID: 0, Parent: -1, Message: "session start", Current: true}}
	second := append(first[:1:1], domain.JournalEntry{ID: 1, Parent: 0, Depth: 1, Message: "add cube", Current: true})
	second[0].Current = false

	require.NoError(t, store.Save(ctx, "s1", first))
	require.NoError(t, store.Save(ctx, "s1", second))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, second, loaded)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "temp files are cleaned up")
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-s1-123.json"), []byte("[]"), 0o644))
	require.NoError(t, store.Save(context.Background(), "b", nil))
	require.NoError(t, store.Save(context.Background(), "a", nil))

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sessions)
}

func TestFileStore_RejectsBadSessionIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()
	for _, id := range []string{"", "../escape", "a/b", ".."} {
		assert.Error(t, store.Save(ctx, id, nil), id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, id)
	}
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
