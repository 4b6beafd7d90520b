package storystore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/store/memstore"
	"github.com/inkforge-labs/inkforge/pkg/story"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(memstore.New(), func() time.Time { return time.Unix(1000, 0) })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func insertStory(t *testing.T, s *Store, author string, c story.Category, score uint64) *story.Story {
	t.Helper()
	st, err := s.Insert(&story.Story{
		Title:  "t",
		Author: author,
		Label:  story.LabelOriginal,
		Detail: story.Detail{Category: c},
		Score:  score,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return st
}

func TestStoriesByCategoryNewestFirst(t *testing.T) {
	s := newStore(t)

	for i := 0; i < 3; i++ {
		insertStory(t, s, "alice", story.CategoryPoetry, 0)
	}
	insertStory(t, s, "alice", story.CategoryFiction, 0)

	page, err := s.StoriesByCategory(story.CategoryPoetry, nil, 2)
	if err != nil {
		t.Fatalf("StoriesByCategory: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 2 {
		t.Fatalf("Expected newest-first page [3 2], got %v", ids(page))
	}

	cursor := page[1].ID
	page, err = s.StoriesByCategory(story.CategoryPoetry, &cursor, 2)
	if err != nil {
		t.Fatalf("StoriesByCategory after cursor: %v", err)
	}
	if len(page) != 1 || page[0].ID != 1 {
		t.Fatalf("Expected page [1], got %v", ids(page))
	}
}

func TestStoriesByCategoriesFanOut(t *testing.T) {
	s := newStore(t)

	insertStory(t, s, "alice", story.CategoryPoetry, 0)
	insertStory(t, s, "alice", story.CategoryFiction, 0)
	insertStory(t, s, "alice", story.CategoryPoetry, 0)

	categories := []story.Category{story.CategoryPoetry, story.CategoryFiction}
	page, err := s.StoriesByCategories(categories, make([]*uint64, 2), 4)
	if err != nil {
		t.Fatalf("StoriesByCategories: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("Expected 3 stories, got %v", ids(page))
	}

	// A nil cursor slice is the first page for every category.
	page, err = s.StoriesByCategories(categories, nil, 4)
	if err != nil {
		t.Fatalf("StoriesByCategories with nil cursors: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("Expected 3 stories with nil cursors, got %v", ids(page))
	}

	if _, err := s.StoriesByCategories(categories, make([]*uint64, 2), 5); !repo.IsIllegalArgument(err) {
		t.Errorf("Expected IllegalArgumentError for indivisible limit, got %v", err)
	}
	if _, err := s.StoriesByCategories(categories, make([]*uint64, 1), 4); !repo.IsIllegalArgument(err) {
		t.Errorf("Expected IllegalArgumentError for mismatched cursors, got %v", err)
	}
}

func TestStoriesByScore(t *testing.T) {
	s := newStore(t)

	insertStory(t, s, "alice", story.CategoryPoetry, 5)  // id 1
	insertStory(t, s, "alice", story.CategoryPoetry, 9)  // id 2
	insertStory(t, s, "alice", story.CategoryPoetry, 5)  // id 3
	insertStory(t, s, "alice", story.CategoryPoetry, 1)  // id 4

	page, err := s.StoriesByScore(nil, 3)
	if err != nil {
		t.Fatalf("StoriesByScore: %v", err)
	}
	// Score descending, newest first among ties.
	if len(page) != 3 || page[0].ID != 2 || page[1].ID != 3 || page[2].ID != 1 {
		t.Fatalf("Expected [2 3 1], got %v", ids(page))
	}

	cursor := &ScoreCursor{Score: page[2].Score, ID: page[2].ID}
	page, err = s.StoriesByScore(cursor, 3)
	if err != nil {
		t.Fatalf("StoriesByScore after cursor: %v", err)
	}
	if len(page) != 1 || page[0].ID != 4 {
		t.Fatalf("Expected [4], got %v", ids(page))
	}
}

func TestScoreIndexFollowsUpdate(t *testing.T) {
	s := newStore(t)

	st := insertStory(t, s, "alice", story.CategoryPoetry, 0)
	insertStory(t, s, "alice", story.CategoryPoetry, 5)

	st.Score = 10
	if _, err := s.Update(st); err != nil {
		t.Fatalf("Update: %v", err)
	}

	page, err := s.StoriesByScore(nil, 10)
	if err != nil {
		t.Fatalf("StoriesByScore: %v", err)
	}
	if len(page) != 2 || page[0].ID != st.ID {
		t.Fatalf("Expected updated story first, got %v", ids(page))
	}
}

func TestSupport(t *testing.T) {
	s := newStore(t)
	st := insertStory(t, s, "alice", story.CategoryPoetry, 0)

	if err := s.SupportStory(st.ID, "bob", 0, decimal.Zero); !repo.IsIllegalArgument(err) {
		t.Errorf("Expected IllegalArgumentError for empty support, got %v", err)
	}
	if err := s.SupportStory(99, "bob", 1, decimal.Zero); err != repo.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := s.SupportStory(st.ID, "bob", 2, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("SupportStory: %v", err)
	}
	if err := s.SupportStory(st.ID, "carol", 1, decimal.Zero); err != nil {
		t.Fatalf("SupportStory: %v", err)
	}

	sup, ok, err := s.SupportBy(st.ID, "bob")
	if err != nil || !ok {
		t.Fatalf("SupportBy: ok=%v err=%v", ok, err)
	}
	if sup.Size != 2 || !sup.Tokens.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Unexpected support record: %+v", sup)
	}
	if _, ok, _ := s.SupportBy(st.ID, "dave"); ok {
		t.Error("Expected no record for a non-supporter")
	}

	supporters, err := s.Supporters(st.ID)
	if err != nil {
		t.Fatalf("Supporters: %v", err)
	}
	if len(supporters) != 2 {
		t.Fatalf("Expected 2 supporters, got %d", len(supporters))
	}
	if supporters[0].Identity != "bob" || supporters[1].Identity != "carol" {
		t.Errorf("Expected identity order [bob carol], got %+v", supporters)
	}

	if err := s.RemoveSupport(st.ID, "carol"); err != nil {
		t.Fatalf("RemoveSupport: %v", err)
	}
	if err := s.RemoveSupport(st.ID, "carol"); err != repo.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCascadesSupport(t *testing.T) {
	s := newStore(t)
	st := insertStory(t, s, "alice", story.CategoryPoetry, 0)
	other := insertStory(t, s, "alice", story.CategoryPoetry, 0)

	if err := s.SupportStory(st.ID, "bob", 1, decimal.Zero); err != nil {
		t.Fatalf("SupportStory: %v", err)
	}
	if err := s.SupportStory(other.ID, "bob", 1, decimal.Zero); err != nil {
		t.Fatalf("SupportStory: %v", err)
	}

	if err := s.Delete(st.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.SupportBy(st.ID, "bob"); err != repo.ErrNotFound {
		t.Errorf("Expected ErrNotFound for deleted story, got %v", err)
	}

	supporters, err := s.Supporters(other.ID)
	if err != nil || len(supporters) != 1 {
		t.Errorf("Expected the other story's support intact, got %v err=%v", supporters, err)
	}

	page, err := s.StoriesByCategory(story.CategoryPoetry, nil, 10)
	if err != nil || len(page) != 1 {
		t.Errorf("Expected 1 story left in the category, got %v err=%v", ids(page), err)
	}
}

func ids(stories []*story.Story) []uint64 {
	out := make([]uint64, len(stories))
	for i, st := range stories {
		out[i] = st.ID
	}
	return out
}
