package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAtomic(t *testing.T, fsys FileSystem, path, data string, commitNew bool) error {
	t.Helper()
	f, err := CreateAtomic(fsys, path)
	require.NoError(t, err)
	if _, err := f.Write([]byte(data)); err != nil {
		_ = f.Abort()
		return err
	}
	if commitNew {
		return f.CommitNew()
	}
	return f.Commit()
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(des))
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestAtomicFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b.blob")

	f, err := CreateAtomic(Default, path)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	assert.Equal(t, path, f.Name())

	// Only the temporary file exists before Commit.
	names := entries(t, filepath.Join(dir, "a"))
	require.Len(t, names, 1)
	assert.True(t, IsTemp(names[0]))

	require.NoError(t, f.Commit())
	assert.ErrorIs(t, f.Commit(), os.ErrClosed)
	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, []string{"b.blob"}, entries(t, filepath.Join(dir, "a")))

	// Commit replaces.
	require.NoError(t, writeAtomic(t, Default, path, "world", false))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestAtomicFile_CommitNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "once")

	require.NoError(t, writeAtomic(t, Default, path, "first", true))
	err := writeAtomic(t, Default, path, "second", true)
	assert.ErrorIs(t, err, os.ErrExist)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	assert.Equal(t, []string{"once"}, entries(t, dir))
}

func TestAtomicFile_Abort(t *testing.T) {
	dir := t.TempDir()
	f, err := CreateAtomic(Default, filepath.Join(dir, "gone"))
	require.NoError(t, err)
	_, err = f.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, f.Abort())
	assert.ErrorIs(t, f.Abort(), os.ErrClosed)
	assert.Empty(t, entries(t, dir))
}

func TestFaultyFS(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
	}{
		{"Write", Fault{FailAfterBytes: 3}},
		{"Sync", Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"Close", Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"Rename", Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		for _, commitNew := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/new=%t", tt.name, commitNew), func(t *testing.T) {
				dir := t.TempDir()
				ffs := NewFaultyFS(nil)
				ffs.AddRule("target", tt.fault)

				err := writeAtomic(t, ffs, filepath.Join(dir, "target"), "payload", commitNew)
				assert.ErrorIs(t, err, ErrInjected)

				// Neither the target nor a temporary file survives.
				assert.Empty(t, entries(t, dir))
			})
		}
	}
}

func TestFaultyFS_CustomError(t *testing.T) {
	custom := os.ErrPermission
	ffs := NewFaultyFS(nil)
	ffs.AddRule("x.blob", Fault{FailAfterBytes: 0, Err: custom})

	err := writeAtomic(t, ffs, filepath.Join(t.TempDir(), "x.blob"), "data", false)
	assert.ErrorIs(t, err, custom)

	require.NoError(t, writeAtomic(t, ffs, filepath.Join(t.TempDir(), "y.blob"), "data", false))
	assert.Equal(t, int64(4), ffs.Written())
}

func TestIsTemp(t *testing.T) {
	assert.True(t, IsTemp(".b.blob.tmp-abc"))
	assert.True(t, IsTemp("dir/.CURRENT.tmp-1"))
	assert.False(t, IsTemp("b.blob"))
	assert.False(t, IsTemp("a.tmp-b"))
}
