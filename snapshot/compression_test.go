package snapshot

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blobarena/testutil"
)

func TestPayloadCodec(t *testing.T) {
	compressible := bytes.Repeat([]byte("level=7 hp=100 mp=50;"), 40_000)
	random := testutil.NewRNG(42).Bytes(blockSize + 1000)

	for _, codec := range []Codec{LZ4, ZSTD} {
		t.Run(codec.String(), func(t *testing.T) {
			t.Run("Compressible", func(t *testing.T) {
				encoded, err := encodePayload(compressible, codec)
				require.NoError(t, err)
				assert.Less(t, len(encoded), len(compressible)/4)

				decoded := make([]byte, len(compressible))
				require.NoError(t, decodePayload(decoded, encoded, codec))
				assert.Equal(t, compressible, decoded)
			})

			t.Run("IncompressibleStoredRaw", func(t *testing.T) {
				encoded, err := encodePayload(random, codec)
				require.NoError(t, err)
				// Two blocks, both raw.
				assert.Equal(t, len(random)+2*blockHeaderSize, len(encoded))
				assert.Zero(t, binary.LittleEndian.Uint32(encoded[4:]))

				decoded := make([]byte, len(random))
				require.NoError(t, decodePayload(decoded, encoded, codec))
				assert.Equal(t, random, decoded)
			})

			t.Run("LengthMismatch", func(t *testing.T) {
				encoded, err := encodePayload(compressible[:1000], codec)
				require.NoError(t, err)

				assert.ErrorIs(t, decodePayload(make([]byte, 999), encoded, codec), ErrChecksumMismatch)
				assert.ErrorIs(t, decodePayload(make([]byte, 1001), encoded, codec), ErrTruncated)
				assert.ErrorIs(t, decodePayload(make([]byte, 1000), encoded[:5], codec), ErrTruncated)
			})
		})
	}
}

func BenchmarkEncodePayload(b *testing.B) {
	data := bytes.Repeat([]byte("level=7 hp=100 mp=50;"), 50_000)
	for _, codec := range []Codec{LZ4, ZSTD} {
		b.Run(codec.String(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for b.Loop() {
				_, _ = encodePayload(data, codec)
			}
		})
	}
}
