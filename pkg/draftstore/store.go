// Package draftstore persists drafts and their content records, indexed by
// author.
package draftstore

import (
	"fmt"

	"github.com/inkforge-labs/inkforge/pkg/draft"
	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/store"
	"github.com/inkforge-labs/inkforge/pkg/story"
)

// Storage regions owned by the draft repository. Reserved at initialization,
// never reused.
const (
	regionSerial    store.Region = "draft/serial"
	regionRecords   store.Region = "draft/records"
	regionContent   store.Region = "draft/content"
	regionAuthorIdx store.Region = "draft/idx/author"
)

// authorKey builds the (author, id ascending) composite index key. Drafts
// list oldest-first.
func authorKey(author string, id uint64) []byte {
	return store.AppendUint64(store.AppendString(nil, author), id)
}

type indexes struct {
	author *repo.Index
}

func (ix *indexes) AddIndexes(d *draft.Draft) error {
	return ix.author.Insert(authorKey(d.Author, d.ID))
}

func (ix *indexes) RemoveIndexes(d *draft.Draft) error {
	_, err := ix.author.Remove(authorKey(d.Author, d.ID))
	return err
}

func (ix *indexes) ClearIndexes() error {
	return ix.author.Clear()
}

// Store is the draft repository: audited base records, a content table under
// the same ids, and an author index.
type Store struct {
	*repo.Audited[draft.Draft, *draft.Draft]
	content *repo.Basic[uint64, story.Content]
	idx     *indexes
}

// New binds the draft repository to its storage regions.
func New(backend store.Backend, clock repo.Clock) (*Store, error) {
	serialCell, err := backend.Cell(regionSerial)
	if err != nil {
		return nil, fmt.Errorf("failed to init draft serial: %w", err)
	}
	records, err := backend.Map(regionRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to init draft records: %w", err)
	}
	content, err := backend.Map(regionContent)
	if err != nil {
		return nil, fmt.Errorf("failed to init draft content: %w", err)
	}
	authorIdx, err := backend.Map(regionAuthorIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to init draft author index: %w", err)
	}

	ix := &indexes{author: repo.NewIndex(authorIdx)}
	return &Store{
		Audited: repo.NewAudited[draft.Draft, *draft.Draft](
			"draft",
			repo.NewTable[uint64, draft.Draft](records, repo.Uint64KeyFunc),
			repo.NewSerial(serialCell),
			ix,
			clock,
		),
		content: repo.NewBasic(repo.NewTable[uint64, story.Content](content, repo.Uint64KeyFunc)),
		idx:     ix,
	}, nil
}

// Content exposes the draft-content repository. Content records share the
// draft's id; their lifecycle is managed by the draft service, including the
// compensating delete when a two-step create fails halfway.
func (s *Store) Content() *repo.Basic[uint64, story.Content] { return s.content }

// DraftsByAuthor returns up to limit of the author's drafts, oldest first,
// resuming strictly after cursor (the last-seen draft id).
func (s *Store) DraftsByAuthor(author string, cursor *uint64, limit int) ([]*draft.Draft, error) {
	prefix := store.AppendString(nil, author)
	var after []byte
	if cursor != nil {
		after = authorKey(author, *cursor)
	}

	keys, err := s.idx.author.Find(prefix, after, limit)
	if err != nil {
		return nil, err
	}

	drafts := make([]*draft.Draft, 0, len(keys))
	for _, key := range keys {
		id := store.ParseUint64(key, len(key)-8)
		d, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			drafts = append(drafts, d)
		}
	}
	return drafts, nil
}
