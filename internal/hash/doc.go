// Package hash provides the hashing primitives used by the blob containers.
//
// # Key hashing
//
// Keys stored in blob maps and sets are fixed-size, padding-free values. Code
// hashes their raw bytes with xxHash64 and folds the result into a
// non-negative int32, which is what the containers store per entry:
//
//	code := hash.Code(raw)
//	bucket := hash.Bucket(code, bucketCount)
//
// # CRC32-Castagnoli (CRC32C)
//
// Snapshot payloads and S3 uploads are checksummed with CRC32C, which uses
// hardware acceleration on x86 (SSE4.2) and ARM (CRC extension).
//
//	checksum := hash.CRC32C(data)
package hash
