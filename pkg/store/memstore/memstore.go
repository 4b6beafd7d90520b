// Package memstore provides an in-memory store backend. State lives for the
// process lifetime only; it backs tests and local development.
package memstore

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/inkforge-labs/inkforge/pkg/store"
)

const btreeDegree = 16

type shape int

const (
	shapeCell shape = iota
	shapeMap
	shapeLog
)

// Backend is an in-memory implementation of store.Backend.
type Backend struct {
	mu     sync.Mutex
	shapes map[store.Region]shape
	cells  map[store.Region]*cell
	maps   map[store.Region]*orderedMap
	logs   map[store.Region]*log
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		shapes: make(map[store.Region]shape),
		cells:  make(map[store.Region]*cell),
		maps:   make(map[store.Region]*orderedMap),
		logs:   make(map[store.Region]*log),
	}
}

// Cell returns the cell bound to region, creating it on first use.
func (b *Backend) Cell(region store.Region) (store.Cell, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bind(region, shapeCell); err != nil {
		return nil, err
	}
	if c, ok := b.cells[region]; ok {
		return c, nil
	}
	c := &cell{}
	b.cells[region] = c
	return c, nil
}

// Map returns the ordered map bound to region, creating it on first use.
func (b *Backend) Map(region store.Region) (store.Map, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bind(region, shapeMap); err != nil {
		return nil, err
	}
	if m, ok := b.maps[region]; ok {
		return m, nil
	}
	m := &orderedMap{tree: newTree()}
	b.maps[region] = m
	return m, nil
}

// Log returns the append-only log bound to region, creating it on first use.
func (b *Backend) Log(region store.Region) (store.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bind(region, shapeLog); err != nil {
		return nil, err
	}
	if l, ok := b.logs[region]; ok {
		return l, nil
	}
	l := &log{}
	b.logs[region] = l
	return l, nil
}

// Close is a no-op for the in-memory backend.
func (b *Backend) Close() error { return nil }

func (b *Backend) bind(region store.Region, s shape) error {
	if bound, ok := b.shapes[region]; ok {
		if bound != s {
			return store.ErrRegionShapeConflict
		}
		return nil
	}
	b.shapes[region] = s
	return nil
}

type cell struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

func (c *cell) Get() ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return nil, false, nil
	}
	return clone(c.value), true, nil
}

func (c *cell) Set(value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = clone(value)
	c.set = true
	return nil
}

func (c *cell) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.set = false
	return nil
}

type entry struct {
	key   []byte
	value []byte
}

func newTree() *btree.BTreeG[entry] {
	return btree.NewG(btreeDegree, func(a, b entry) bool {
		return bytes.Compare(a.key, b.key) < 0
	})
}

type orderedMap struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

func (m *orderedMap) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return nil, false, nil
	}
	return clone(e.value), true, nil
}

func (m *orderedMap) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(entry{key: clone(key), value: clone(value)})
	return nil
}

func (m *orderedMap) Delete(key []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tree.Delete(entry{key: key})
	return ok, nil
}

func (m *orderedMap) Len() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(m.tree.Len()), nil
}

func (m *orderedMap) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Clear(false)
	return nil
}

func (m *orderedMap) Ascend(lo, hi []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iter := func(e entry) bool { return fn(e.key, e.value) }
	switch {
	case lo == nil && hi == nil:
		m.tree.Ascend(iter)
	case lo == nil:
		m.tree.AscendLessThan(entry{key: hi}, iter)
	case hi == nil:
		m.tree.AscendGreaterOrEqual(entry{key: lo}, iter)
	default:
		m.tree.AscendRange(entry{key: lo}, entry{key: hi}, iter)
	}
	return nil
}

type log struct {
	mu      sync.RWMutex
	entries [][]byte
}

func (l *log) Append(value []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, clone(value))
	return uint64(len(l.entries) - 1), nil
}

func (l *log) Get(index uint64) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index >= uint64(len(l.entries)) {
		return nil, false, nil
	}
	return clone(l.entries[index]), true, nil
}

func (l *log) Len() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries)), nil
}

func (l *log) Iterate(fn func(index uint64, value []byte) bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, v := range l.entries {
		if !fn(uint64(i), v) {
			break
		}
	}
	return nil
}

func (l *log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
