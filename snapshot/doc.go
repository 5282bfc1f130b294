// Package snapshot persists blobarena Containers.
//
// A snapshot is a 64-byte header followed by the container's used bytes,
// optionally block-compressed with LZ4 or ZSTD:
//
//	0   magic    "BLOBARNA"
//	8   version  uint16
//	10  codec    uint8 (0 none, 1 lz4, 2 zstd)
//	11  flags    uint8
//	12  crc      uint32 CRC32C of the uncompressed payload
//	16  used     uint64 uncompressed payload length
//	24  stored   uint64 stored payload length
//	32  root     uint32 root handle
//	36  reserved
//
// Header fields are little-endian. The payload is the arena image as it
// lies in memory, so a snapshot can only be loaded on a machine with the
// byte order it was written on.
//
// # Usage
//
//	err := snapshot.WriteFile(ctx, "items.blob", c, snapshot.WithCompression(snapshot.ZSTD))
//
//	c, err := snapshot.Open("items.blob")   // mmap, no copy when uncompressed
//	defer c.Dispose()
//
// Open maps uncompressed snapshots privately copy-on-write: pages are read
// lazily and the Container may still be modified or grown without touching
// the file.
package snapshot
