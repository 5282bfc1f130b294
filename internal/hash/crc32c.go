package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli checksum of data, the variant S3 accepts as
// x-amz-checksum-crc32c and the one snapshot headers record.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}
