// Package repo is the indexed repository framework: generic CRUD and
// secondary-index maintenance over the ordered-map primitive, with serial-id
// generation and audit timestamps. Domain repositories are thin
// instantiations of this package.
package repo

import (
	"fmt"
	"time"

	"github.com/inkforge-labs/inkforge/internal/metrics"
)

// Clock supplies timestamps for audit fields. Injected so tests control time.
type Clock func() time.Time

// Auditable is implemented by pointer types whose audit fields the framework
// owns. Callers never set id, created_at or updated_at directly.
type Auditable[T any] interface {
	*T
	GetID() uint64
	SetID(id uint64)
	SetCreatedAt(unixNano int64)
	SetUpdatedAt(unixNano int64)
}

// Indexer maintains the secondary-index entries for a value. Every audited
// repository supplies one; repositories without indexes use NoIndex.
type Indexer[T any] interface {
	AddIndexes(v *T) error
	RemoveIndexes(v *T) error
	ClearIndexes() error
}

// SyncIndexes removes the entries for the previously stored value (if any)
// and adds the entries for the new one. A no-op diff when the indexed fields
// did not change, since remove-then-add of identical keys converges.
func SyncIndexes[T any](idx Indexer[T], value, old *T) error {
	if old != nil {
		if err := idx.RemoveIndexes(old); err != nil {
			return err
		}
	}
	return idx.AddIndexes(value)
}

// NoIndex is an Indexer for repositories without secondary indexes.
type NoIndex[T any] struct{}

func (NoIndex[T]) AddIndexes(*T) error    { return nil }
func (NoIndex[T]) RemoveIndexes(*T) error { return nil }
func (NoIndex[T]) ClearIndexes() error    { return nil }

// Audited is a repository over serial-keyed, audit-stamped entities. Insert
// assigns the id and created_at; Update stamps updated_at and resynchronizes
// indexes from the previously stored value; Delete removes the base record
// and its index entries. Repositories with dependent child records embed
// Audited and shadow Delete to cascade.
type Audited[T any, P Auditable[T]] struct {
	entity string
	table  *Table[uint64, T]
	serial *Serial
	idx    Indexer[T]
	clock  Clock
}

// NewAudited assembles an audited repository for the named entity. A nil
// clock defaults to time.Now.
func NewAudited[T any, P Auditable[T]](
	entity string,
	table *Table[uint64, T],
	serial *Serial,
	idx Indexer[T],
	clock Clock,
) *Audited[T, P] {
	if clock == nil {
		clock = time.Now
	}
	return &Audited[T, P]{entity: entity, table: table, serial: serial, idx: idx, clock: clock}
}

func (r *Audited[T, P]) countOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RepositoryOps.WithLabelValues(r.entity, op, status).Inc()
}

// Get returns the entity stored under id.
func (r *Audited[T, P]) Get(id uint64) (*T, bool, error) { return r.table.Get(id) }

// GetAll returns every entity in id order.
func (r *Audited[T, P]) GetAll() ([]*T, error) { return r.table.GetAll() }

// Exists reports whether id is present.
func (r *Audited[T, P]) Exists(id uint64) (bool, error) { return r.table.Exists(id) }

// Count returns the number of stored entities.
func (r *Audited[T, P]) Count() (uint64, error) { return r.table.Count() }

// NextID exposes the serial generator for callers that pre-allocate ids.
func (r *Audited[T, P]) NextID() (uint64, error) { return r.serial.NextID() }

// PeekNextID returns the id the next Insert will assign.
func (r *Audited[T, P]) PeekNextID() (uint64, error) { return r.serial.PeekNextID() }

// Insert assigns a fresh serial id and created_at, writes the base record and
// adds its index entries. Under the single-writer execution model the two
// writes are observably atomic at the call boundary.
func (r *Audited[T, P]) Insert(v *T) (*T, error) {
	out, err := r.insert(v)
	r.countOp("insert", err)
	return out, err
}

func (r *Audited[T, P]) insert(v *T) (*T, error) {
	p := P(v)
	exists, err := r.table.Exists(p.GetID())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	id, err := r.serial.NextID()
	if err != nil {
		return nil, err
	}
	p.SetID(id)
	p.SetCreatedAt(r.clock().UnixNano())

	if err := r.table.Put(id, v); err != nil {
		return nil, err
	}
	if err := r.idx.AddIndexes(v); err != nil {
		return nil, fmt.Errorf("failed to add indexes: %w", err)
	}
	return v, nil
}

// Update stamps updated_at, overwrites the base record and resynchronizes
// indexes against the previously stored value.
func (r *Audited[T, P]) Update(v *T) (*T, error) {
	out, err := r.update(v)
	r.countOp("update", err)
	return out, err
}

func (r *Audited[T, P]) update(v *T) (*T, error) {
	p := P(v)
	old, ok, err := r.table.Get(p.GetID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	p.SetUpdatedAt(r.clock().UnixNano())
	if err := r.table.Put(p.GetID(), v); err != nil {
		return nil, err
	}
	if err := SyncIndexes(r.idx, v, old); err != nil {
		return nil, fmt.Errorf("failed to sync indexes: %w", err)
	}
	return v, nil
}

// Delete removes the base record and all of its index entries.
func (r *Audited[T, P]) Delete(id uint64) error {
	err := r.delete(id)
	r.countOp("delete", err)
	return err
}

func (r *Audited[T, P]) delete(id uint64) error {
	old, ok, err := r.table.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if _, err := r.table.Remove(id); err != nil {
		return err
	}
	if err := r.idx.RemoveIndexes(old); err != nil {
		return fmt.Errorf("failed to remove indexes: %w", err)
	}
	return nil
}

// Basic is a repository over caller-keyed values without serial ids or index
// maintenance (content records, identity-keyed entities).
type Basic[K comparable, V any] struct {
	table *Table[K, V]
}

// NewBasic creates a basic repository over table.
func NewBasic[K comparable, V any](table *Table[K, V]) *Basic[K, V] {
	return &Basic[K, V]{table: table}
}

// Get returns the value stored under k.
func (r *Basic[K, V]) Get(k K) (*V, bool, error) { return r.table.Get(k) }

// GetAll returns every value in key order.
func (r *Basic[K, V]) GetAll() ([]*V, error) { return r.table.GetAll() }

// Exists reports whether k is present.
func (r *Basic[K, V]) Exists(k K) (bool, error) { return r.table.Exists(k) }

// Count returns the number of stored values.
func (r *Basic[K, V]) Count() (uint64, error) { return r.table.Count() }

// Insert writes v under k, failing with ErrConflict if k is taken.
func (r *Basic[K, V]) Insert(k K, v *V) (*V, error) {
	exists, err := r.table.Exists(k)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}
	if err := r.table.Put(k, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Update overwrites the value under k, failing with ErrNotFound if absent.
func (r *Basic[K, V]) Update(k K, v *V) (*V, error) {
	exists, err := r.table.Exists(k)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	if err := r.table.Put(k, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes k, failing with ErrNotFound if absent.
func (r *Basic[K, V]) Delete(k K) error {
	removed, err := r.table.Remove(k)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}
