// Package userstore persists writer accounts keyed by caller identity.
package userstore

import (
	"fmt"

	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/store"
	"github.com/inkforge-labs/inkforge/pkg/user"
)

const regionRecords store.Region = "user/records"

// Store is the user repository. Users carry no serial id: the caller
// identity is the natural key, so audit timestamps are stamped here rather
// than by the serial-keyed framework.
type Store struct {
	*repo.Basic[string, user.User]
	clock repo.Clock
}

// New binds the user repository to its storage region.
func New(backend store.Backend, clock repo.Clock) (*Store, error) {
	records, err := backend.Map(regionRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to init user records: %w", err)
	}
	return &Store{
		Basic: repo.NewBasic(repo.NewTable[string, user.User](records, repo.StringKeyFunc)),
		clock: clock,
	}, nil
}

// Insert stores a new user, stamping both audit timestamps.
func (s *Store) Insert(identity string, u *user.User) (*user.User, error) {
	now := s.clock().UnixNano()
	u.Identity = identity
	u.CreatedAt = now
	u.UpdatedAt = now
	return s.Basic.Insert(identity, u)
}

// Update replaces an existing user, refreshing the update timestamp.
func (s *Store) Update(identity string, u *user.User) (*user.User, error) {
	u.Identity = identity
	u.UpdatedAt = s.clock().UnixNano()
	return s.Basic.Update(identity, u)
}
