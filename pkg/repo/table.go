package repo

import (
	"encoding/json"
	"fmt"

	"github.com/inkforge-labs/inkforge/pkg/store"
)

// KeyFunc encodes a typed key into its ordered byte form.
type KeyFunc[K comparable] func(K) []byte

// Uint64KeyFunc encodes uint64 keys big-endian so map order matches numeric
// order.
func Uint64KeyFunc(k uint64) []byte { return store.Uint64Key(k) }

// StringKeyFunc encodes string keys (caller identities) verbatim.
func StringKeyFunc(k string) []byte { return []byte(k) }

// Table is a typed view over an ordered map: JSON-encoded values addressed by
// a typed key. It is the base-record storage every repository builds on.
type Table[K comparable, V any] struct {
	m   store.Map
	key KeyFunc[K]
}

// NewTable creates a table over m using key to encode keys.
func NewTable[K comparable, V any](m store.Map, key KeyFunc[K]) *Table[K, V] {
	return &Table[K, V]{m: m, key: key}
}

// Get returns the value stored under k, or false if absent.
func (t *Table[K, V]) Get(k K) (*V, bool, error) {
	raw, ok, err := t.m.Get(t.key(k))
	if err != nil || !ok {
		return nil, false, err
	}
	v := new(V)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, false, fmt.Errorf("failed to decode record: %w", err)
	}
	return v, true, nil
}

// GetAll returns every value in key order.
func (t *Table[K, V]) GetAll() ([]*V, error) {
	var out []*V
	var decodeErr error
	err := t.m.Ascend(nil, nil, func(_, raw []byte) bool {
		v := new(V)
		if decodeErr = json.Unmarshal(raw, v); decodeErr != nil {
			return false
		}
		out = append(out, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode record: %w", decodeErr)
	}
	return out, nil
}

// Exists reports whether k is present.
func (t *Table[K, V]) Exists(k K) (bool, error) {
	_, ok, err := t.m.Get(t.key(k))
	return ok, err
}

// Count returns the number of stored values.
func (t *Table[K, V]) Count() (uint64, error) { return t.m.Len() }

// Put writes v under k, overwriting any previous value.
func (t *Table[K, V]) Put(k K, v *V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return t.m.Set(t.key(k), raw)
}

// Remove deletes k and reports whether it was present.
func (t *Table[K, V]) Remove(k K) (bool, error) {
	return t.m.Delete(t.key(k))
}

// Clear removes every value.
func (t *Table[K, V]) Clear() error { return t.m.Clear() }
