package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/blobarena"
)

var (
	// ErrBadMagic is returned when the input is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrUnsupportedVersion is returned for snapshots of an unknown format version or codec.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrChecksumMismatch is returned when the payload does not match its CRC32C.
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	// ErrTruncated is returned when the input ends before the payload does.
	ErrTruncated = errors.New("snapshot: truncated")
)

const (
	// HeaderSize is the size of the snapshot header in bytes.
	HeaderSize = 64
	// Version is the format version written by this package.
	Version uint16 = 1

	maxPayload = math.MaxUint32
)

var magic = [8]byte{'B', 'L', 'O', 'B', 'A', 'R', 'N', 'A'}

// Codec selects the payload compression.
type Codec uint8

const (
	// None stores the payload as is. Only uncompressed snapshots can be
	// mapped without a copy.
	None Codec = 0
	// LZ4 compresses the payload with LZ4 blocks (fast).
	LZ4 Codec = 1
	// ZSTD compresses the payload with ZSTD blocks (smaller).
	ZSTD Codec = 2
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

func (c Codec) valid() bool { return c <= ZSTD }

// header is the decoded snapshot header.
type header struct {
	Version uint16
	Codec   Codec
	Flags   uint8
	CRC     uint32
	Used    uint64
	Stored  uint64
	Root    uint32
}

func (h header) marshal() []byte {
	b := make([]byte, HeaderSize)
	copy(b, magic[:])
	binary.LittleEndian.PutUint16(b[8:], h.Version)
	b[10] = byte(h.Codec)
	b[11] = h.Flags
	binary.LittleEndian.PutUint32(b[12:], h.CRC)
	binary.LittleEndian.PutUint64(b[16:], h.Used)
	binary.LittleEndian.PutUint64(b[24:], h.Stored)
	binary.LittleEndian.PutUint32(b[32:], h.Root)
	return b
}

func parseHeader(b []byte) (header, error) {
	if len(b) < HeaderSize {
		return header{}, fmt.Errorf("%w: header has %d of %d bytes", ErrTruncated, len(b), HeaderSize)
	}
	if [8]byte(b[:8]) != magic {
		return header{}, ErrBadMagic
	}

	h := header{
		Version: binary.LittleEndian.Uint16(b[8:]),
		Codec:   Codec(b[10]),
		Flags:   b[11],
		CRC:     binary.LittleEndian.Uint32(b[12:]),
		Used:    binary.LittleEndian.Uint64(b[16:]),
		Stored:  binary.LittleEndian.Uint64(b[24:]),
		Root:    binary.LittleEndian.Uint32(b[32:]),
	}
	if h.Version != Version {
		return header{}, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, h.Version)
	}
	if !h.Codec.valid() {
		return header{}, fmt.Errorf("%w: codec %s", ErrUnsupportedVersion, h.Codec)
	}
	if h.Used == 0 || h.Used > maxPayload {
		return header{}, fmt.Errorf("%w: snapshot payload length %d", blobarena.ErrCorrupt, h.Used)
	}
	if h.Codec == None && h.Stored != h.Used {
		return header{}, fmt.Errorf("%w: snapshot stores %d bytes of an uncompressed %d byte payload", blobarena.ErrCorrupt, h.Stored, h.Used)
	}
	return h, nil
}
