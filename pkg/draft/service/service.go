// Package service orchestrates draft use cases: create, update, publish,
// delete, listing, and the stake-gated writing-assistant calls.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/inkforge-labs/inkforge/internal/metrics"
	apperrors "github.com/inkforge-labs/inkforge/pkg/app/errors"
	"github.com/inkforge-labs/inkforge/pkg/assistant"
	"github.com/inkforge-labs/inkforge/pkg/draft"
	"github.com/inkforge-labs/inkforge/pkg/draftstore"
	"github.com/inkforge-labs/inkforge/pkg/ledger"
	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/story"
	"github.com/inkforge-labs/inkforge/pkg/storystore"
)

// SaveDraftArgs carries the optional fields of a draft save. A save with no
// field set is rejected.
type SaveDraftArgs struct {
	Title   *string       `json:"title,omitempty"`
	Content *string       `json:"content,omitempty"`
	Detail  *story.Detail `json:"detail,omitempty"`
}

func (a *SaveDraftArgs) empty() bool {
	return a.Title == nil && a.Content == nil && a.Detail == nil
}

// DraftService orchestrates the draft lifecycle.
type DraftService struct {
	drafts    *draftstore.Store
	stories   *storystore.Store
	ledger    *ledger.Ledger
	assistant assistant.Assistant
	// stakeThreshold is the minimum staked balance unlocking assistant
	// features.
	stakeThreshold decimal.Decimal
	logger         *zap.Logger
}

// NewDraftService creates a new draft service.
func NewDraftService(
	drafts *draftstore.Store,
	stories *storystore.Store,
	ldg *ledger.Ledger,
	asst assistant.Assistant,
	stakeThreshold decimal.Decimal,
	logger *zap.Logger,
) *DraftService {
	return &DraftService{
		drafts:         drafts,
		stories:        stories,
		ledger:         ldg,
		assistant:      asst,
		stakeThreshold: stakeThreshold,
		logger:         logger,
	}
}

// CreateDraft stores a new draft and its content record. The two inserts
// are separate writes with no shared transaction: if the content insert
// fails the draft is removed again by a compensating delete and the content
// error is surfaced.
func (s *DraftService) CreateDraft(identity string, args SaveDraftArgs) (*draft.Draft, error) {
	if args.empty() {
		return nil, apperrors.UnprocessableEntityError(nil, "Nothing to save")
	}

	var title, content string
	if args.Title != nil {
		title = *args.Title
	}
	if args.Content != nil {
		content = *args.Content
	}
	d := draft.New(title, args.Detail, identity)
	d.ReadTime = draft.EstimateReadTime(content)

	d, err := s.drafts.Insert(d)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, apperrors.ConflictError(err, "Draft already exists")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("failed to create draft: %w", err))
	}

	_, err = s.drafts.Content().Insert(d.ID, &story.Content{ID: d.ID, Body: content, Author: identity})
	if err != nil {
		contentErr := fmt.Errorf("failed to create draft content: %w", err)
		if delErr := s.drafts.Delete(d.ID); delErr != nil {
			return nil, apperrors.GeneralError(fmt.Errorf(
				"failed to roll back draft creation: %v. original error: %w", delErr, contentErr))
		}
		return nil, apperrors.GeneralError(contentErr)
	}
	return d, nil
}

// UpdateDraft applies a partial save to an existing draft. When only the
// content changed and the read-time estimate is unaffected, the draft
// entity itself is not rewritten.
func (s *DraftService) UpdateDraft(id uint64, identity string, args SaveDraftArgs) error {
	if args.empty() {
		return apperrors.UnprocessableEntityError(nil, "Nothing to update")
	}

	d, err := s.getOwnedDraft(id, identity)
	if err != nil {
		return err
	}

	if args.Title != nil {
		d.Title = *args.Title
	}
	detailChanged := args.Detail != nil
	if detailChanged {
		d.Detail = args.Detail
	}

	if args.Content != nil {
		content, ok, err := s.drafts.Content().Get(id)
		if err != nil {
			return apperrors.GeneralError(err)
		}
		if !ok {
			return apperrors.ResourceNotFoundError(nil, "Draft not found")
		}
		if content.Author != identity {
			return apperrors.ForbiddenError(nil, "Not the draft author")
		}

		newEstimate := draft.EstimateReadTime(*args.Content)
		content.Body = *args.Content
		if _, err := s.drafts.Content().Update(id, content); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return apperrors.ResourceNotFoundError(err, "Draft not found")
			}
			return apperrors.GeneralError(fmt.Errorf("failed to update draft content: %w", err))
		}
		if newEstimate == d.ReadTime && args.Title == nil && !detailChanged {
			// Content-only save with an unchanged estimate; skip the
			// entity write.
			return nil
		}
		d.ReadTime = newEstimate
	}

	if _, err := s.drafts.Update(d); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.ResourceNotFoundError(err, "Draft not found")
		}
		return apperrors.GeneralError(fmt.Errorf("failed to update draft: %w", err))
	}
	return nil
}

// PublishDraft promotes a draft into a story. The story and its content are
// two separate inserts: a content failure rolls the story back and surfaces
// the content error. Only after the story exists are the draft records
// removed.
func (s *DraftService) PublishDraft(id uint64, identity string) (*story.Story, error) {
	d, err := s.getOwnedDraft(id, identity)
	if err != nil {
		return nil, err
	}
	content, ok, err := s.drafts.Content().Get(id)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, apperrors.ResourceNotFoundError(nil, "Draft not found")
	}
	if content.Author != identity {
		return nil, apperrors.ForbiddenError(nil, "Not the draft author")
	}

	if d.Title == "" || content.Body == "" {
		return nil, apperrors.UnprocessableEntityError(nil, "Title and content cannot be empty")
	}
	if d.Detail == nil || d.Detail.Description == "" {
		return nil, apperrors.UnprocessableEntityError(nil, "Story detail is required")
	}
	if !d.Detail.Category.Valid() {
		return nil, apperrors.UnprocessableEntityError(nil, "Unknown story category")
	}

	label := story.LabelOriginal
	if d.AIAssisted {
		label = story.LabelAIAssisted
	}
	st := &story.Story{
		Title:    d.Title,
		Author:   d.Author,
		Label:    label,
		Detail:   *d.Detail,
		ReadTime: d.ReadTime,
	}
	st, err = s.stories.Insert(st)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, apperrors.ConflictError(err, "Story already exists")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("failed to publish draft: %w", err))
	}

	_, err = s.stories.Content().Insert(st.ID, &story.Content{ID: st.ID, Body: content.Body, Author: identity})
	if err != nil {
		contentErr := fmt.Errorf("failed to publish draft content: %w", err)
		if delErr := s.stories.Delete(st.ID); delErr != nil {
			return nil, apperrors.GeneralError(fmt.Errorf(
				"failed to roll back publishing: %v. original error: %w", delErr, contentErr))
		}
		return nil, apperrors.GeneralError(contentErr)
	}

	if err := s.drafts.Content().Delete(id); err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("failed to delete draft content: %w", err))
	}
	if err := s.drafts.Delete(id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "Draft not found")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("failed to delete draft: %w", err))
	}

	metrics.StoriesPublished.WithLabelValues(string(st.Detail.Category)).Inc()
	s.logger.Info("draft published",
		zap.Uint64("draft_id", id),
		zap.Uint64("story_id", st.ID),
		zap.String("category", string(st.Detail.Category)))
	return st, nil
}

// DeleteDraft removes a draft and its content record.
func (s *DraftService) DeleteDraft(id uint64, identity string) error {
	if _, err := s.getOwnedDraft(id, identity); err != nil {
		return err
	}
	if err := s.drafts.Content().Delete(id); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return apperrors.GeneralError(fmt.Errorf("failed to delete draft content: %w", err))
	}
	if err := s.drafts.Delete(id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.ResourceNotFoundError(err, "Draft not found")
		}
		return apperrors.GeneralError(fmt.Errorf("failed to delete draft: %w", err))
	}
	return nil
}

// GetDraft returns a draft and its content record.
func (s *DraftService) GetDraft(id uint64, identity string) (*draft.Draft, *story.Content, error) {
	d, err := s.getOwnedDraft(id, identity)
	if err != nil {
		return nil, nil, err
	}
	content, ok, err := s.drafts.Content().Get(id)
	if err != nil {
		return nil, nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, nil, apperrors.ResourceNotFoundError(nil, "Draft not found")
	}
	return d, content, nil
}

// ListDrafts pages through the author's drafts, oldest first. The returned
// cursor resumes after the last draft of this page.
func (s *DraftService) ListDrafts(identity string, cursor *uint64, limit int) ([]*draft.Draft, *uint64, error) {
	drafts, err := s.drafts.DraftsByAuthor(identity, cursor, limit)
	if err != nil {
		return nil, nil, apperrors.GeneralError(fmt.Errorf("failed to list drafts: %w", err))
	}
	var next *uint64
	if len(drafts) > 0 {
		next = &drafts[len(drafts)-1].ID
	}
	return drafts, next, nil
}

// ExpandParagraph grows a paragraph of the draft through the assistant.
// Gated on the caller's staked balance. The draft is re-read after the
// assistant returns; other operations may have run during the call.
func (s *DraftService) ExpandParagraph(ctx context.Context, id uint64, identity, text string) (string, error) {
	if _, err := s.getOwnedDraft(id, identity); err != nil {
		return "", err
	}
	if err := s.checkStake(identity); err != nil {
		return "", err
	}

	expanded, err := s.callAssistant(ctx, "expand_paragraph", func() (string, error) {
		return s.assistant.ExpandParagraph(ctx, text)
	})
	if err != nil {
		return "", err
	}

	if err := s.markAssisted(id, identity); err != nil {
		return "", err
	}
	return expanded, nil
}

// WriteStoryDescription asks the assistant for a promotional description of
// the draft's content and stores it on the draft. Gated on the caller's
// staked balance; the draft is re-read after the assistant returns.
func (s *DraftService) WriteStoryDescription(ctx context.Context, id uint64, identity string) (string, error) {
	if _, err := s.getOwnedDraft(id, identity); err != nil {
		return "", err
	}
	content, ok, err := s.drafts.Content().Get(id)
	if err != nil {
		return "", apperrors.GeneralError(err)
	}
	if !ok {
		return "", apperrors.ResourceNotFoundError(nil, "Draft not found")
	}
	if content.Body == "" {
		return "", apperrors.UnprocessableEntityError(nil, "Draft content cannot be empty")
	}
	if err := s.checkStake(identity); err != nil {
		return "", err
	}

	description, err := s.callAssistant(ctx, "write_story_description", func() (string, error) {
		return s.assistant.WriteStoryDescription(ctx, content.Body)
	})
	if err != nil {
		return "", err
	}

	// The draft may have changed or vanished while the assistant ran.
	d, err := s.getOwnedDraft(id, identity)
	if err != nil {
		return "", err
	}
	if d.Detail == nil {
		d.Detail = &story.Detail{}
	}
	d.Detail.Description = description
	d.AIAssisted = true
	if _, err := s.drafts.Update(d); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", apperrors.ResourceNotFoundError(err, "Draft not found")
		}
		return "", apperrors.GeneralError(fmt.Errorf("failed to store description: %w", err))
	}
	return description, nil
}

func (s *DraftService) callAssistant(ctx context.Context, operation string, call func() (string, error)) (string, error) {
	callID := uuid.NewString()
	s.logger.Debug("calling assistant", zap.String("operation", operation), zap.String("call_id", callID))
	timer := prometheus.NewTimer(metrics.AssistantDuration.WithLabelValues(operation))
	out, err := call()
	timer.ObserveDuration()
	if err != nil {
		metrics.AssistantCalls.WithLabelValues(operation, "error").Inc()
		s.logger.Warn("assistant call failed",
			zap.String("operation", operation), zap.String("call_id", callID), zap.Error(err))
		if errors.Is(err, assistant.ErrFailed) {
			return "", apperrors.UnprocessableEntityError(err, "Assistant could not process the text")
		}
		return "", apperrors.GeneralError(err)
	}
	metrics.AssistantCalls.WithLabelValues(operation, "success").Inc()
	return out, nil
}

// markAssisted flags the draft after a successful assistant call,
// re-reading it because the call is a suspension point.
func (s *DraftService) markAssisted(id uint64, identity string) error {
	d, err := s.getOwnedDraft(id, identity)
	if err != nil {
		return err
	}
	if d.AIAssisted {
		return nil
	}
	d.AIAssisted = true
	if _, err := s.drafts.Update(d); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.ResourceNotFoundError(err, "Draft not found")
		}
		return apperrors.GeneralError(err)
	}
	return nil
}

func (s *DraftService) checkStake(identity string) error {
	staked, err := s.ledger.StakeOf(identity)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	if staked.LessThan(s.stakeThreshold) {
		return apperrors.ForbiddenError(nil, "Assistant features require a staked balance")
	}
	return nil
}

func (s *DraftService) getOwnedDraft(id uint64, identity string) (*draft.Draft, error) {
	d, ok, err := s.drafts.Get(id)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, apperrors.ResourceNotFoundError(nil, "Draft not found")
	}
	if d.Author != identity {
		return nil, apperrors.ForbiddenError(nil, "Not the draft author")
	}
	return d, nil
}
