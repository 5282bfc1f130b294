package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.blob")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpen(t *testing.T) {
	path := writeFile(t, []byte("header|payload"))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 14, m.Size())
	assert.False(t, m.Writable())
	assert.Equal(t, "header|payload", string(m.Bytes()))
	require.NoError(t, m.Advise(AccessSequential))
}

func TestReadAt(t *testing.T) {
	m, err := Open(writeFile(t, []byte("header|payload")))
	require.NoError(t, err)
	defer m.Close()

	tests := []struct {
		name string
		off  int64
		buf  int
		want string
		err  error
	}{
		{"full", 7, 7, "payload", nil},
		{"short", 10, 8, "load", io.EOF},
		{"past end", 100, 4, "", io.EOF},
		{"negative", -1, 4, "", ErrInvalidOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := make([]byte, tt.buf)
			n, err := m.ReadAt(p, tt.off)
			assert.Equal(t, tt.err, err)
			assert.Equal(t, tt.want, string(p[:n]))
		})
	}
}

func TestOpen_Empty(t *testing.T) {
	m, err := OpenPrivate(writeFile(t, nil))
	require.NoError(t, err)

	assert.Zero(t, m.Size())
	assert.Empty(t, m.Bytes())
	require.NoError(t, m.Advise(AccessRandom))
	require.NoError(t, m.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.blob"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenPrivate_CopyOnWrite(t *testing.T) {
	path := writeFile(t, []byte("original"))

	m, err := OpenPrivate(path)
	require.NoError(t, err)
	assert.True(t, m.Writable())

	copy(m.Bytes(), "modified")
	assert.Equal(t, "modified", string(m.Bytes()))
	require.NoError(t, m.Close())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(onDisk))
}

func TestMapAnon(t *testing.T) {
	m, err := MapAnon(4096)
	require.NoError(t, err)
	defer m.Close()

	data := m.Bytes()
	require.Len(t, data, 4096)
	assert.True(t, m.Writable())
	for _, b := range data {
		require.Zero(t, b)
	}

	data[0], data[4095] = 0xAB, 0xCD
	assert.Equal(t, byte(0xAB), m.Bytes()[0])
	assert.Equal(t, byte(0xCD), m.Bytes()[4095])

	_, err = MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRegion(t *testing.T) {
	data := make([]byte, 3*os.Getpagesize())
	for i := range data {
		data[i] = byte(i)
	}
	m, err := Open(writeFile(t, data))
	require.NoError(t, err)

	// An unaligned window still advises cleanly.
	r, err := m.Region(100, 2*os.Getpagesize())
	require.NoError(t, err)
	require.Len(t, r.Bytes(), 2*os.Getpagesize())
	assert.Equal(t, byte(100), r.Bytes()[0])
	assert.Equal(t, len(r.Bytes()), cap(r.Bytes()))
	require.NoError(t, r.Advise(AccessRandom))

	for _, bad := range [][2]int{{-1, 1}, {0, -1}, {len(data), 1}, {1, len(data)}} {
		_, err := m.Region(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrOutOfBounds, "region %v", bad)
	}

	require.NoError(t, m.Close())
	assert.Nil(t, r.Bytes())
	assert.ErrorIs(t, r.Advise(AccessDefault), ErrClosed)
}

func TestClose(t *testing.T) {
	m, err := Open(writeFile(t, []byte("data")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}
