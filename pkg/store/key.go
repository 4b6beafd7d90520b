package store

import "encoding/binary"

// Composite index keys are built by appending fixed-order segments. Uint64
// segments are big-endian so bytewise key order matches numeric order; the
// descending variant stores the bitwise complement, turning an ascending map
// into a newest-first index. String segments are length-prefixed, which keeps
// all entries sharing the same criteria prefix contiguous.

// AppendUint64 appends v as an ascending-order segment.
func AppendUint64(key []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(key, v)
}

// AppendUint64Desc appends v as a descending-order segment.
func AppendUint64Desc(key []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(key, ^v)
}

// AppendString appends s as a length-prefixed segment.
func AppendString(key []byte, s string) []byte {
	key = binary.BigEndian.AppendUint16(key, uint16(len(s)))
	return append(key, s...)
}

// Uint64Key returns a standalone ascending uint64 key.
func Uint64Key(v uint64) []byte {
	return AppendUint64(nil, v)
}

// ParseUint64 reads an ascending uint64 segment at offset off.
func ParseUint64(key []byte, off int) uint64 {
	return binary.BigEndian.Uint64(key[off : off+8])
}

// ParseUint64Desc reads a descending uint64 segment at offset off.
func ParseUint64Desc(key []byte, off int) uint64 {
	return ^binary.BigEndian.Uint64(key[off : off+8])
}

// PrefixRange returns the [lo, hi) bounds covering every key starting with
// prefix. hi is nil when the prefix is all 0xff bytes (unbounded above).
func PrefixRange(prefix []byte) (lo, hi []byte) {
	lo = prefix
	hi = make([]byte, len(prefix))
	copy(hi, prefix)
	for i := len(hi) - 1; i >= 0; i-- {
		if hi[i] < 0xff {
			hi[i]++
			return lo, hi[:i+1]
		}
	}
	return lo, nil
}
