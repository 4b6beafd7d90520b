// Package service orchestrates reader-facing story use cases: feeds,
// reading, and supporting a story with tokens.
package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/inkforge-labs/inkforge/internal/metrics"
	apperrors "github.com/inkforge-labs/inkforge/pkg/app/errors"
	"github.com/inkforge-labs/inkforge/pkg/ledger"
	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/story"
	"github.com/inkforge-labs/inkforge/pkg/storystore"
)

// StoryService serves feeds and support flows.
type StoryService struct {
	stories *storystore.Store
	ledger  *ledger.Ledger
	logger  *zap.Logger
}

// NewStoryService creates a new story service.
func NewStoryService(stories *storystore.Store, ldg *ledger.Ledger, logger *zap.Logger) *StoryService {
	return &StoryService{stories: stories, ledger: ldg, logger: logger}
}

// GetStory returns a story and its content.
func (s *StoryService) GetStory(id uint64) (*story.Story, *story.Content, error) {
	st, ok, err := s.stories.Get(id)
	if err != nil {
		return nil, nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, nil, apperrors.ResourceNotFoundError(nil, "Story not found")
	}
	content, ok, err := s.stories.Content().Get(id)
	if err != nil {
		return nil, nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, nil, apperrors.ResourceNotFoundError(nil, "Story not found")
	}
	return st, content, nil
}

// CategoryFeed pages stories across the given categories, newest first. One
// limit fans out over all categories, so it must divide evenly by their
// count; cursors pair with categories by position.
func (s *StoryService) CategoryFeed(categories []story.Category, cursors []*uint64, limit int) ([]*story.Story, error) {
	if len(categories) == 0 {
		return nil, apperrors.BadRequestError(nil, "At least one category is required")
	}
	for _, c := range categories {
		if !c.Valid() {
			return nil, apperrors.BadRequestError(nil, fmt.Sprintf("Unknown category %q", c))
		}
	}
	stories, err := s.stories.StoriesByCategories(categories, cursors, limit)
	if err != nil {
		if repo.IsIllegalArgument(err) {
			return nil, apperrors.BadRequestError(err, err.Error())
		}
		return nil, apperrors.GeneralError(fmt.Errorf("failed to load category feed: %w", err))
	}
	return stories, nil
}

// AuthorFeed pages an author's stories, newest first.
func (s *StoryService) AuthorFeed(author string, cursor *uint64, limit int) ([]*story.Story, *uint64, error) {
	stories, err := s.stories.StoriesByAuthor(author, cursor, limit)
	if err != nil {
		return nil, nil, apperrors.GeneralError(fmt.Errorf("failed to load author feed: %w", err))
	}
	var next *uint64
	if len(stories) > 0 {
		next = &stories[len(stories)-1].ID
	}
	return stories, next, nil
}

// TopStories pages stories by score, best first.
func (s *StoryService) TopStories(cursor *storystore.ScoreCursor, limit int) ([]*story.Story, *storystore.ScoreCursor, error) {
	stories, err := s.stories.StoriesByScore(cursor, limit)
	if err != nil {
		return nil, nil, apperrors.GeneralError(fmt.Errorf("failed to load top stories: %w", err))
	}
	var next *storystore.ScoreCursor
	if len(stories) > 0 {
		last := stories[len(stories)-1]
		next = &storystore.ScoreCursor{Score: last.Score, ID: last.ID}
	}
	return stories, next, nil
}

// SupportRequest is one reader's support for a story: a support size and
// the tokens to move to the author.
type SupportRequest struct {
	Size   uint64          `json:"size"`
	Tokens decimal.Decimal `json:"tokens"`
}

// SupportStory transfers tokens from the supporter to the story's author
// and records the support. The transfer is an external ledger call; the
// story is re-read afterwards before any repository mutation, because it
// may have been deleted while the transfer ran.
func (s *StoryService) SupportStory(id uint64, identity string, req SupportRequest) (uint64, error) {
	if req.Size == 0 {
		return 0, apperrors.BadRequestError(nil, "Support size must be greater than 0")
	}
	st, ok, err := s.stories.Get(id)
	if err != nil {
		return 0, apperrors.GeneralError(err)
	}
	if !ok {
		return 0, apperrors.ResourceNotFoundError(nil, "Story not found")
	}
	if st.Author == identity {
		return 0, apperrors.BadRequestError(nil, "Cannot support your own story")
	}

	var block uint64
	if req.Tokens.IsPositive() {
		block, err = s.ledger.Transfer(identity, ledger.TransferArgs{
			To:     ledger.AccountOf(st.Author, nil),
			Amount: req.Tokens,
		})
		if err != nil {
			return 0, mapTransferError(err)
		}
	}

	// Re-read: the story may be gone since the ledger call.
	st, ok, err = s.stories.Get(id)
	if err != nil {
		return 0, apperrors.GeneralError(err)
	}
	if !ok {
		return 0, apperrors.ResourceNotFoundError(nil, "Story no longer exists")
	}

	prior, found, err := s.stories.SupportBy(id, identity)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return 0, apperrors.GeneralError(err)
	}
	size, tokens := req.Size, req.Tokens
	if found {
		size += prior.Size
		tokens = tokens.Add(prior.Tokens)
	}
	if err := s.stories.SupportStory(id, identity, size, tokens); err != nil {
		return 0, apperrors.GeneralError(fmt.Errorf("failed to record support: %w", err))
	}

	st.SupportCount += req.Size
	st.Score += req.Size
	if _, err := s.stories.Update(st); err != nil {
		return 0, apperrors.GeneralError(fmt.Errorf("failed to update story support count: %w", err))
	}

	metrics.StorySupports.Inc()
	s.logger.Info("story supported",
		zap.Uint64("story_id", id),
		zap.Uint64("size", req.Size),
		zap.String("tokens", req.Tokens.String()))
	return block, nil
}

// Supporters lists everyone who supported the story.
func (s *StoryService) Supporters(id uint64) ([]story.Supporter, error) {
	supporters, err := s.stories.Supporters(id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "Story not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	return supporters, nil
}

func mapTransferError(err error) error {
	switch err.(type) {
	case *ledger.InsufficientFundsError:
		return apperrors.UnprocessableEntityError(err, "Insufficient token balance")
	case *ledger.GenericError, *ledger.BadFeeError:
		return apperrors.BadRequestError(err, err.Error())
	case *ledger.DuplicateError:
		return apperrors.ConflictError(err, err.Error())
	default:
		return apperrors.GeneralError(fmt.Errorf("token transfer failed: %w", err))
	}
}
