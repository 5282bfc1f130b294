package blobarena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blobarena/resource"
)

var allocators = []Allocator{HeapAllocator, MmapAllocator}

func newContainer(t *testing.T, capacity int, opts ...Option) Container {
	t.Helper()
	c, err := New(capacity, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

func TestContainer(t *testing.T) {
	for _, al := range allocators {
		t.Run(al.String(), func(t *testing.T) {
			t.Run("New", func(t *testing.T) {
				c := newContainer(t, 64, WithAllocator(al))
				assert.True(t, c.IsValid())
				assert.Equal(t, headerSize, c.Len())
				assert.GreaterOrEqual(t, c.Cap(), 64)
				assert.Equal(t, al, c.Stats().Allocator)
				assert.True(t, c.Root().IsNil())
			})

			t.Run("InvalidCapacity", func(t *testing.T) {
				for _, capacity := range []int{0, -1} {
					_, err := New(capacity, WithAllocator(al))
					assert.ErrorIs(t, err, ErrInvalidArgument)
				}
			})

			t.Run("Dispose", func(t *testing.T) {
				c, err := New(64, WithAllocator(al))
				require.NoError(t, err)
				p, err := AllocScalar[uint64](c)
				require.NoError(t, err)

				c.Dispose()
				c.Dispose()

				assert.False(t, c.IsValid())
				_, err = AllocScalar[uint64](c)
				assert.ErrorIs(t, err, ErrInvalidOperation)
				assert.ErrorIs(t, c.Reserve(1024), ErrInvalidOperation)
				assert.ErrorIs(t, c.SetRoot(p.Raw()), ErrInvalidOperation)
				assert.Panics(t, func() { p.Get(c) })
			})

			t.Run("ReserveKeepsData", func(t *testing.T) {
				c := newContainer(t, 64, WithAllocator(al))
				arr, err := AllocArray[uint64](c, 4)
				require.NoError(t, err)
				for i := range 4 {
					arr.Set(c, i, uint64(i)*1000+7)
				}

				capacity := c.Cap()
				require.NoError(t, c.Reserve(capacity))
				require.NoError(t, c.Reserve(1))
				assert.Equal(t, capacity, c.Cap())

				for _, n := range []int{1 << 10, 1 << 10, 1 << 14, 1 << 16} {
					require.NoError(t, c.Reserve(n))
					assert.GreaterOrEqual(t, c.Cap(), n)
					for i := range 4 {
						assert.Equal(t, uint64(i)*1000+7, arr.Get(c, i))
					}
				}
			})

			t.Run("Root", func(t *testing.T) {
				c := newContainer(t, 64, WithAllocator(al))
				m, err := AllocMap[uint32, uint32](c, 4)
				require.NoError(t, err)
				require.NoError(t, c.SetRoot(m.Raw()))
				assert.Equal(t, m.Raw(), c.Root())
			})

			t.Run("FromBytes", func(t *testing.T) {
				c := newContainer(t, 64, WithAllocator(al))
				s, err := AllocString(c, "sword of a thousand truths")
				require.NoError(t, err)
				require.NoError(t, c.SetRoot(s.Raw()))

				copied, err := FromBytes(c.Bytes(), WithAllocator(al))
				require.NoError(t, err)
				defer copied.Dispose()

				assert.Equal(t, c.Len(), copied.Len())
				assert.Equal(t, "sword of a thousand truths", String(copied.Root()).Value(copied))

				// The copy is independent of the original.
				c.Dispose()
				assert.Equal(t, "sword of a thousand truths", String(copied.Root()).Value(copied))
			})
		})
	}
}

func TestFromBytes_Invalid(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = FromBytes(make([]byte, 64))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestContainer_MemoryLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 4096})
	c, err := New(1024, WithAllocator(HeapAllocator), WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), rc.MemoryUsage())

	m, err := AllocMap[uint32, uint64](c, 16)
	require.NoError(t, err)
	for i := range uint32(16) {
		require.NoError(t, m.Set(c, i, uint64(i)))
	}

	_, err = AllocArray[uint64](c, 1024)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)

	// The failed growth left the container intact.
	assert.Equal(t, 16, m.Len(c))
	require.NoError(t, m.Verify(c))
	v, ok := m.TryGetValue(c, 9)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), v)

	c.Dispose()
	assert.Zero(t, rc.MemoryUsage())
}

func TestUnsupportedTypes(t *testing.T) {
	c := newContainer(t, 64)

	type padded struct {
		A uint8
		B uint32
	}
	type withFloat struct {
		ID    uint32
		Ratio float32
	}

	tests := []struct {
		name  string
		alloc func() error
	}{
		{"PointerScalar", func() error { _, err := AllocScalar[*int](c); return err }},
		{"StringArray", func() error { _, err := AllocArray[string](c, 1); return err }},
		{"SliceValue", func() error { _, err := AllocMap[uint32, []byte](c, 1); return err }},
		{"FloatKey", func() error { _, err := AllocMap[float64, uint32](c, 1); return err }},
		{"FloatFieldKey", func() error { _, err := AllocSet[withFloat](c, 1); return err }},
		{"PaddedKey", func() error { _, err := AllocMultiMap[padded, uint32](c, 1); return err }},
		{"StringKey", func() error { _, err := AllocSet[string](c, 1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alloc()
			require.ErrorIs(t, err, ErrInvalidArgument)

			var typeErr *UnsupportedTypeError
			assert.True(t, errors.As(err, &typeErr))
		})
	}

	t.Run("FloatValueAllowed", func(t *testing.T) {
		_, err := AllocMap[uint32, withFloat](c, 1)
		assert.NoError(t, err)
	})
}

func TestPtr(t *testing.T) {
	type stats struct {
		HP, MP int32
		Speed  float32
	}

	c := newContainer(t, 64)
	p, err := AllocScalar[stats](c)
	require.NoError(t, err)
	assert.False(t, p.IsNil())
	assert.Equal(t, stats{}, p.Get(c))

	p.Set(c, stats{HP: 100, MP: 50, Speed: 1.5})
	p.Ref(c).HP -= 10
	assert.Equal(t, stats{HP: 90, MP: 50, Speed: 1.5}, p.Get(c))

	assert.Equal(t, p, PtrAt[stats](p.Raw()))
}

func TestArray(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000} {
		c := newContainer(t, 64)
		arr, err := AllocArray[int64](c, n)
		require.NoError(t, err)
		require.Equal(t, n, arr.Len(c))

		for i := range n {
			arr.Set(c, i, int64(i*i)-3)
		}
		// Force growth between write and read.
		require.NoError(t, c.Reserve(c.Cap()*4))

		got := make([]int64, 0, n)
		for i, v := range arr.All(c) {
			assert.Equal(t, arr.Get(c, i), v)
			got = append(got, v)
		}
		for i := range n {
			assert.Equal(t, int64(i*i)-3, got[i])
		}
	}

	t.Run("NegativeLength", func(t *testing.T) {
		c := newContainer(t, 64)
		_, err := AllocArray[int64](c, -1)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("ArrayOf", func(t *testing.T) {
		c := newContainer(t, 64)
		arr, err := ArrayOf(c, []uint16{3, 1, 4, 1, 5})
		require.NoError(t, err)
		assert.Equal(t, []uint16{3, 1, 4, 1, 5}, arr.Slice(c))
		*arr.Ref(c, 1) = 9
		assert.Equal(t, uint16(9), arr.Get(c, 1))
	})

	t.Run("Nil", func(t *testing.T) {
		c := newContainer(t, 64)
		var arr Array[int64]
		assert.True(t, arr.IsNil())
		assert.Zero(t, arr.Len(c))
		for range arr.All(c) {
			t.Fatal("nil array yielded a value")
		}
	})
}

func TestString(t *testing.T) {
	c := newContainer(t, 64)

	for _, s := range []string{"", "a", "Excalibur", "日本語"} {
		h, err := AllocString(c, s)
		require.NoError(t, err)
		assert.Equal(t, s, h.Value(c))
		assert.Equal(t, len(s), h.Len(c))
	}

	var nilString String
	assert.Equal(t, "", nilString.Value(c))
}
