package snapshot

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/blobarena"
)

// Compressed payloads are a sequence of blocks, each
// [UncompressedSize uint32][CompressedSize uint32][Data...].
// CompressedSize == 0 means the block is stored raw.
const (
	blockHeaderSize = 8
	blockSize       = 256 * 1024
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// encodePayload splits data into blocks and compresses each one.
func encodePayload(data []byte, codec Codec) ([]byte, error) {
	out := make([]byte, 0, len(data)/2+blockHeaderSize)
	for len(data) > 0 {
		n := min(len(data), blockSize)
		var err error
		out, err = appendBlock(out, data[:n], codec)
		if err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return out, nil
}

// appendBlock compresses one block onto dst. Blocks that do not shrink by
// at least 10% are stored raw.
func appendBlock(dst, block []byte, codec Codec) ([]byte, error) {
	var compressed []byte
	switch codec {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(block)))
		n, err := lz4.CompressBlock(block, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(block, nil)
		putZstdEncoder(enc)
	default:
		return nil, fmt.Errorf("%w: codec %s", ErrUnsupportedVersion, codec)
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(block))) //nolint:gosec // bounded by blockSize
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(block))*0.9 {
		dst = append(dst, hdr[:]...)
		return append(dst, block...), nil
	}
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed))) //nolint:gosec // bounded by block bound
	dst = append(dst, hdr[:]...)
	return append(dst, compressed...), nil
}

// checkBlocks walks the block headers of src without decoding them and
// verifies that they add up to used bytes. It runs before the output buffer
// is allocated, so a forged header cannot make Read allocate more than its
// blocks declare.
func checkBlocks(src []byte, used uint64) error {
	var total uint64
	for len(src) > 0 {
		if len(src) < blockHeaderSize {
			return fmt.Errorf("%w: partial block header", ErrTruncated)
		}
		rawSize := binary.LittleEndian.Uint32(src[0:])
		compressedSize := binary.LittleEndian.Uint32(src[4:])
		src = src[blockHeaderSize:]

		if rawSize > blockSize {
			return fmt.Errorf("%w: block of %d bytes exceeds %d", blobarena.ErrCorrupt, rawSize, blockSize)
		}
		n := compressedSize
		if n == 0 {
			n = rawSize
		}
		if uint64(len(src)) < uint64(n) {
			return fmt.Errorf("%w: block of %d bytes", ErrTruncated, n)
		}
		src = src[n:]
		total += uint64(rawSize)
	}
	if total != used {
		return fmt.Errorf("%w: blocks hold %d bytes, header declares %d", blobarena.ErrCorrupt, total, used)
	}
	return nil
}

// decodePayload decompresses src into dst, which must have exactly the
// uncompressed payload length.
func decodePayload(dst, src []byte, codec Codec) error {
	var dec *zstd.Decoder
	if codec == ZSTD {
		dec = getZstdDecoder()
		defer putZstdDecoder(dec)
	}

	filled := 0
	for len(src) > 0 {
		if len(src) < blockHeaderSize {
			return fmt.Errorf("%w: partial block header", ErrTruncated)
		}
		rawSize := int(binary.LittleEndian.Uint32(src[0:]))
		compressedSize := int(binary.LittleEndian.Uint32(src[4:]))
		src = src[blockHeaderSize:]

		if rawSize > len(dst)-filled {
			return fmt.Errorf("%w: blocks exceed the payload length %d", ErrChecksumMismatch, len(dst))
		}
		out := dst[filled : filled+rawSize : filled+rawSize]

		if compressedSize == 0 {
			if len(src) < rawSize {
				return fmt.Errorf("%w: raw block of %d bytes", ErrTruncated, rawSize)
			}
			copy(out, src[:rawSize])
			src = src[rawSize:]
			filled += rawSize
			continue
		}

		if len(src) < compressedSize {
			return fmt.Errorf("%w: compressed block of %d bytes", ErrTruncated, compressedSize)
		}
		block := src[:compressedSize]
		src = src[compressedSize:]

		switch codec {
		case LZ4:
			n, err := lz4.UncompressBlock(block, out)
			if err != nil {
				return fmt.Errorf("%w: lz4: %w", ErrChecksumMismatch, err)
			}
			if n != rawSize {
				return fmt.Errorf("%w: lz4 block decoded to %d of %d bytes", ErrChecksumMismatch, n, rawSize)
			}
		case ZSTD:
			decoded, err := dec.DecodeAll(block, out[:0])
			if err != nil {
				return fmt.Errorf("%w: zstd: %w", ErrChecksumMismatch, err)
			}
			if len(decoded) != rawSize || (rawSize > 0 && &decoded[0] != &out[0]) {
				return fmt.Errorf("%w: zstd block decoded to %d of %d bytes", ErrChecksumMismatch, len(decoded), rawSize)
			}
		default:
			return fmt.Errorf("%w: codec %s", ErrUnsupportedVersion, codec)
		}
		filled += rawSize
	}

	if filled != len(dst) {
		return fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, filled, len(dst))
	}
	return nil
}
