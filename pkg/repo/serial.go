package repo

import (
	"fmt"

	"github.com/inkforge-labs/inkforge/pkg/store"
)

// firstSerialID is the first id ever issued for an entity type.
const firstSerialID = 1

// Serial issues strictly increasing ids for one entity type, persisting the
// counter in a cell. Ids are never reused, even across deletes.
type Serial struct {
	cell store.Cell
}

// NewSerial wraps the given cell as a serial-id counter.
func NewSerial(cell store.Cell) *Serial {
	return &Serial{cell: cell}
}

// PeekNextID returns the id the next call to NextID will issue.
func (s *Serial) PeekNextID() (uint64, error) {
	raw, ok, err := s.cell.Get()
	if err != nil {
		return 0, fmt.Errorf("failed to read serial counter: %w", err)
	}
	if !ok {
		return firstSerialID, nil
	}
	return store.ParseUint64(raw, 0), nil
}

// NextID returns the next id and advances the counter.
func (s *Serial) NextID() (uint64, error) {
	id, err := s.PeekNextID()
	if err != nil {
		return 0, err
	}
	if err := s.cell.Set(store.Uint64Key(id + 1)); err != nil {
		return 0, fmt.Errorf("failed to advance serial counter: %w", err)
	}
	return id, nil
}
