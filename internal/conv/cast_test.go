//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTo_Uint32(t *testing.T) {
	tests := []struct {
		name string
		in   int
		ok   bool
	}{
		{"zero", 0, true},
		{"max offset", math.MaxUint32, true},
		{"negative", -1, false},
		{"too large", math.MaxUint32 + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := To[uint32](tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrOverflow)
				assert.Zero(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.in), uint64(got))
		})
	}
}

func TestTo_Int32(t *testing.T) {
	got, err := To[int32](math.MaxInt32)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), got)

	got, err = To[int32](math.MinInt32)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), got)

	_, err = To[int32](math.MaxInt32 + 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestTo_Int(t *testing.T) {
	got, err := To[int](uint64(math.MaxInt))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got)

	_, err = To[int](uint64(math.MaxInt) + 1)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Contains(t, err.Error(), "does not fit int")
}
