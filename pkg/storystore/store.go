// Package storystore persists published stories, their content, the
// category/author/scoring indexes and the per-story supporter records.
package storystore

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/store"
	"github.com/inkforge-labs/inkforge/pkg/story"
)

// Storage regions owned by the story repository.
const (
	regionSerial      store.Region = "story/serial"
	regionRecords     store.Region = "story/records"
	regionContent     store.Region = "story/content"
	regionCategoryIdx store.Region = "story/idx/category"
	regionAuthorIdx   store.Region = "story/idx/author"
	regionScoreIdx    store.Region = "story/idx/score"
	regionSupporters  store.Region = "story/supporters"
)

// Feed index keys store the story id complemented so ascending map order
// yields newest-first pages.
func categoryKey(c story.Category, id uint64) []byte {
	return store.AppendUint64Desc(store.AppendString(nil, string(c)), id)
}

func authorKey(author string, id uint64) []byte {
	return store.AppendUint64Desc(store.AppendString(nil, author), id)
}

// scoreKey orders by score then id, both descending, so the best-scored
// (and among ties, newest) stories come first.
func scoreKey(score, id uint64) []byte {
	return store.AppendUint64Desc(store.AppendUint64Desc(nil, score), id)
}

func supporterKey(storyID uint64, identity string) []byte {
	return store.AppendString(store.AppendUint64(nil, storyID), identity)
}

type indexes struct {
	category *repo.Index
	author   *repo.Index
	score    *repo.Index
}

func (ix *indexes) AddIndexes(s *story.Story) error {
	if err := ix.category.Insert(categoryKey(s.Detail.Category, s.ID)); err != nil {
		return err
	}
	if err := ix.author.Insert(authorKey(s.Author, s.ID)); err != nil {
		return err
	}
	return ix.score.Insert(scoreKey(s.Score, s.ID))
}

func (ix *indexes) RemoveIndexes(s *story.Story) error {
	if _, err := ix.category.Remove(categoryKey(s.Detail.Category, s.ID)); err != nil {
		return err
	}
	if _, err := ix.author.Remove(authorKey(s.Author, s.ID)); err != nil {
		return err
	}
	_, err := ix.score.Remove(scoreKey(s.Score, s.ID))
	return err
}

func (ix *indexes) ClearIndexes() error {
	if err := ix.category.Clear(); err != nil {
		return err
	}
	if err := ix.author.Clear(); err != nil {
		return err
	}
	return ix.score.Clear()
}

// ScoreCursor resumes a scoring-feed page: the (score, id) pair of the last
// story on the previous page.
type ScoreCursor struct {
	Score uint64 `json:"score"`
	ID    uint64 `json:"id"`
}

// Store is the story repository.
type Store struct {
	*repo.Audited[story.Story, *story.Story]
	content    *repo.Basic[uint64, story.Content]
	supporters store.Map
	idx        *indexes
}

// New binds the story repository to its storage regions.
func New(backend store.Backend, clock repo.Clock) (*Store, error) {
	serialCell, err := backend.Cell(regionSerial)
	if err != nil {
		return nil, fmt.Errorf("failed to init story serial: %w", err)
	}
	records, err := backend.Map(regionRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to init story records: %w", err)
	}
	content, err := backend.Map(regionContent)
	if err != nil {
		return nil, fmt.Errorf("failed to init story content: %w", err)
	}
	categoryIdx, err := backend.Map(regionCategoryIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to init story category index: %w", err)
	}
	authorIdx, err := backend.Map(regionAuthorIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to init story author index: %w", err)
	}
	scoreIdx, err := backend.Map(regionScoreIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to init story score index: %w", err)
	}
	supporters, err := backend.Map(regionSupporters)
	if err != nil {
		return nil, fmt.Errorf("failed to init story supporters: %w", err)
	}

	ix := &indexes{
		category: repo.NewIndex(categoryIdx),
		author:   repo.NewIndex(authorIdx),
		score:    repo.NewIndex(scoreIdx),
	}
	return &Store{
		Audited: repo.NewAudited[story.Story, *story.Story](
			"story",
			repo.NewTable[uint64, story.Story](records, repo.Uint64KeyFunc),
			repo.NewSerial(serialCell),
			ix,
			clock,
		),
		content:    repo.NewBasic(repo.NewTable[uint64, story.Content](content, repo.Uint64KeyFunc)),
		supporters: supporters,
		idx:        ix,
	}, nil
}

// Content exposes the story-content repository.
func (s *Store) Content() *repo.Basic[uint64, story.Content] { return s.content }

// Delete removes the story, its index entries and all of its supporter
// records. The supporter cascade is required: the framework has no
// referential integrity of its own.
func (s *Store) Delete(id uint64) error {
	if err := s.Audited.Delete(id); err != nil {
		return err
	}
	return s.removeAllSupport(id)
}

// StoriesByCategory returns up to limit stories in the category, newest
// first, resuming strictly after cursor (the last-seen story id).
func (s *Store) StoriesByCategory(c story.Category, cursor *uint64, limit int) ([]*story.Story, error) {
	prefix := store.AppendString(nil, string(c))
	var after []byte
	if cursor != nil {
		after = categoryKey(c, *cursor)
	}
	return s.collect(s.idx.category, prefix, after, limit)
}

// StoriesByCategories fans one limit out across several categories. The
// limit must be evenly divisible by the category count so every category is
// equally represented; cursors pairs up with categories positionally, and a
// nil slice starts every category from the beginning.
func (s *Store) StoriesByCategories(categories []story.Category, cursors []*uint64, limit int) ([]*story.Story, error) {
	perCategory, err := repo.FanOutLimit(limit, len(categories))
	if err != nil {
		return nil, err
	}
	if cursors == nil {
		cursors = make([]*uint64, len(categories))
	}
	if len(cursors) != len(categories) {
		return nil, &repo.IllegalArgumentError{Reason: "categories and cursors must be of the same size"}
	}

	var out []*story.Story
	for i, c := range categories {
		page, err := s.StoriesByCategory(c, cursors[i], perCategory)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
	}
	return out, nil
}

// StoriesByAuthor returns up to limit of the author's stories, newest first,
// resuming strictly after cursor (the last-seen story id).
func (s *Store) StoriesByAuthor(author string, cursor *uint64, limit int) ([]*story.Story, error) {
	prefix := store.AppendString(nil, author)
	var after []byte
	if cursor != nil {
		after = authorKey(author, *cursor)
	}
	return s.collect(s.idx.author, prefix, after, limit)
}

// StoriesByScore returns up to limit stories ordered by score descending,
// then newest first, resuming strictly after cursor.
func (s *Store) StoriesByScore(cursor *ScoreCursor, limit int) ([]*story.Story, error) {
	var after []byte
	if cursor != nil {
		after = scoreKey(cursor.Score, cursor.ID)
	}
	return s.collect(s.idx.score, nil, after, limit)
}

func (s *Store) collect(idx *repo.Index, prefix, after []byte, limit int) ([]*story.Story, error) {
	keys, err := idx.Find(prefix, after, limit)
	if err != nil {
		return nil, err
	}
	stories := make([]*story.Story, 0, len(keys))
	for _, key := range keys {
		id := store.ParseUint64Desc(key, len(key)-8)
		st, ok, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			stories = append(stories, st)
		}
	}
	return stories, nil
}

// SupportStory records (or replaces) a reader's support for the story.
func (s *Store) SupportStory(id uint64, identity string, size uint64, tokens decimal.Decimal) error {
	exists, err := s.Exists(id)
	if err != nil {
		return err
	}
	if !exists {
		return repo.ErrNotFound
	}
	if size == 0 && tokens.IsZero() {
		return &repo.IllegalArgumentError{Reason: "support size must be greater than 0"}
	}
	return putSupport(s.supporters, supporterKey(id, identity), story.Support{Size: size, Tokens: tokens})
}

// SupportBy returns the reader's support record for the story, if any.
func (s *Store) SupportBy(id uint64, identity string) (*story.Support, bool, error) {
	exists, err := s.Exists(id)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, repo.ErrNotFound
	}
	return getSupport(s.supporters, supporterKey(id, identity))
}

// Supporters returns every supporter of the story in identity order.
func (s *Store) Supporters(id uint64) ([]story.Supporter, error) {
	exists, err := s.Exists(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repo.ErrNotFound
	}

	lo, hi := store.PrefixRange(store.Uint64Key(id))
	var out []story.Supporter
	var decodeErr error
	err = s.supporters.Ascend(lo, hi, func(key, raw []byte) bool {
		sup, err := decodeSupport(raw)
		if err != nil {
			decodeErr = err
			return false
		}
		// Identity follows the 8-byte story id and 2-byte length prefix.
		out = append(out, story.Supporter{
			Identity: string(key[10:]),
			Size:     sup.Size,
			Tokens:   sup.Tokens,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// RemoveSupport deletes the reader's support record for the story.
func (s *Store) RemoveSupport(id uint64, identity string) error {
	exists, err := s.Exists(id)
	if err != nil {
		return err
	}
	if !exists {
		return repo.ErrNotFound
	}
	removed, err := s.supporters.Delete(supporterKey(id, identity))
	if err != nil {
		return err
	}
	if !removed {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) removeAllSupport(id uint64) error {
	lo, hi := store.PrefixRange(store.Uint64Key(id))
	var keys [][]byte
	err := s.supporters.Ascend(lo, hi, func(key, _ []byte) bool {
		k := make([]byte, len(key))
		copy(k, key)
		keys = append(keys, k)
		return true
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := s.supporters.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
