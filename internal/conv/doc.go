// Package conv provides checked integer conversions.
//
// Arena offsets are uint32 and table counts are int32, while Go sizes are
// int and persisted lengths are uint64. To converts between them and fails
// with ErrOverflow instead of silently truncating:
//
//	off, err := conv.To[uint32](start)
//
// Conversions that are provably in range, such as loop indices bounded by a
// checked count, use plain casts.
package conv
