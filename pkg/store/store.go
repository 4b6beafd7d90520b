// Package store defines the persistent primitives the core is built on: a
// single mutable cell, an ordered key/value map with range iteration, and an
// append-only log. Each primitive is bound to a named region reserved at
// process initialization and never reused for another purpose.
package store

import "errors"

// Region names a reserved storage area. A region is bound to exactly one
// primitive shape for the lifetime of the store.
type Region string

// ErrRegionShapeConflict is returned when a region already bound to one
// primitive shape is requested as another.
var ErrRegionShapeConflict = errors.New("store: region already bound to a different shape")

// Cell is a single mutable value surviving restarts.
type Cell interface {
	// Get returns the current value, or false if the cell was never set.
	Get() ([]byte, bool, error)
	Set(value []byte) error
	Clear() error
}

// Map is an ordered key-to-value map. Keys compare bytewise; range iteration
// visits entries in ascending key order.
type Map interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	// Delete removes the key and reports whether it was present.
	Delete(key []byte) (bool, error)
	Len() (uint64, error)
	Clear() error
	// Ascend visits entries with lo <= key < hi in ascending key order.
	// A nil bound is unbounded on that side. fn returns false to stop early.
	Ascend(lo, hi []byte, fn func(key, value []byte) bool) error
}

// Log is an append-only sequence. Entries are addressed by the index returned
// from Append, starting at 0. Reset exists solely for the explicit
// delete-token wipe; nothing else removes entries.
type Log interface {
	Append(value []byte) (uint64, error)
	Get(index uint64) ([]byte, bool, error)
	Len() (uint64, error)
	// Iterate visits entries from index 0 upward. fn returns false to stop.
	Iterate(fn func(index uint64, value []byte) bool) error
	Reset() error
}

// Backend hands out primitives bound to regions. Requesting the same region
// twice yields a handle over the same underlying data; requesting it as a
// different shape fails.
type Backend interface {
	Cell(region Region) (Cell, error)
	Map(region Region) (Map, error)
	Log(region Region) (Log, error)
	Close() error
}
