package storage

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageEmitAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Emit("sdg-2026-03-01.csv", []byte("goal\n13\n")))

	file, err := store.Open("sdg-2026-03-01.csv")
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "goal\n13\n", string(data))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.Error(t, store.Emit("../escape.csv", []byte("x")))
	_, err = store.Open("/etc/passwd")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("old.csv", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("y"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, deleted)

	require.NoError(t, store.Delete("fresh.csv"))
	require.NoError(t, store.Delete("fresh.csv"))
}

func TestLocalStorageDeleteRemovesEmptyJobDirectory(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	rel, err := store.Save("job-1/sdg-report-2026-03-01.pdf", []byte("%PDF"))
	require.NoError(t, err)
	require.DirExists(t, store.Path("job-1"))

	require.NoError(t, store.Delete(rel))
	require.NoDirExists(t, store.Path("job-1"))
	require.DirExists(t, base)
}

func TestLocalStorageSaveLeavesNoPartialFiles(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("job-7/sdg-report.csv", []byte("goal,participants\n"))
	require.NoError(t, err)
	require.Equal(t, "job-7/sdg-report.csv", rel)

	entries, err := os.ReadDir(store.Path("job-7"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sdg-report.csv", entries[0].Name())
}

func TestLocalStorageInvalidNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "/abs.csv", "a/../../b.csv"} {
		_, err := store.Save(name, []byte("x"))
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
	require.Empty(t, store.Path("../x"))
}
