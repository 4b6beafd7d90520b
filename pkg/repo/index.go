package repo

import (
	"github.com/inkforge-labs/inkforge/pkg/store"
)

// Index is a secondary index: an ordered map of composite keys to unit
// values. It is never the source of truth; every entry is derivable by
// replaying inserts and deletes of the base records.
type Index struct {
	m store.Map
}

// NewIndex wraps m as an index.
func NewIndex(m store.Map) *Index {
	return &Index{m: m}
}

// Insert adds an index entry.
func (i *Index) Insert(key []byte) error {
	return i.m.Set(key, nil)
}

// Remove deletes an index entry and reports whether it was present.
func (i *Index) Remove(key []byte) (bool, error) {
	return i.m.Delete(key)
}

// Exists reports whether the entry is present.
func (i *Index) Exists(key []byte) (bool, error) {
	_, ok, err := i.m.Get(key)
	return ok, err
}

// Clear removes all entries.
func (i *Index) Clear() error {
	return i.m.Clear()
}

// Find returns up to limit full index keys sharing prefix, in index order,
// resuming strictly after the supplied cursor key. A nil after starts from
// the beginning of the prefix; limit <= 0 means no limit. Because index sort
// keys are immutable, pages stay stable while new records are inserted
// concurrently with pagination.
func (i *Index) Find(prefix, after []byte, limit int) ([][]byte, error) {
	lo, hi := store.PrefixRange(prefix)
	if after != nil {
		// The smallest key strictly greater than after.
		lo = append(append([]byte{}, after...), 0x00)
	}

	var out [][]byte
	err := i.m.Ascend(lo, hi, func(key, _ []byte) bool {
		k := make([]byte, len(key))
		copy(k, key)
		out = append(out, k)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FanOutLimit validates a fan-out query of one limit across n criteria and
// returns the per-criteria share. The limit must be evenly divisible by the
// criteria count so every criterion is equally represented rather than
// silently skewed.
func FanOutLimit(limit, n int) (int, error) {
	if n == 0 {
		return 0, &IllegalArgumentError{Reason: "no criteria given"}
	}
	if limit < n || limit%n != 0 {
		return 0, &IllegalArgumentError{Reason: "limit size violation"}
	}
	return limit / n, nil
}
