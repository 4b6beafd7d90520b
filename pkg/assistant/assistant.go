// Package assistant defines the contract for the opaque text-transform
// service backing the writing-assistant features.
package assistant

import (
	"context"
	"errors"
)

// FailureKeyword is the exact response the underlying model returns when it
// cannot comply. Implementations must translate it into ErrFailed rather
// than hand it to callers as text.
const FailureKeyword = "::FAILED::"

// ErrFailed is returned when the assistant declines or fails to produce a
// usable result.
var ErrFailed = errors.New("assistant failed to produce a result")

// Unavailable is the no-op assistant wired when no text-transform service
// is configured. Every call fails with ErrFailed.
type Unavailable struct{}

// ExpandParagraph implements Assistant.
func (Unavailable) ExpandParagraph(context.Context, string) (string, error) {
	return "", ErrFailed
}

// WriteStoryDescription implements Assistant.
func (Unavailable) WriteStoryDescription(context.Context, string) (string, error) {
	return "", ErrFailed
}

// Assistant transforms prose. Calls block on an external service; callers
// must treat any state read before a call as stale once it returns.
type Assistant interface {
	// ExpandParagraph grows a paragraph by a few sentences matching its
	// tone and topic.
	ExpandParagraph(ctx context.Context, text string) (string, error)
	// WriteStoryDescription produces a short promotional description for
	// the given story content.
	WriteStoryDescription(ctx context.Context, text string) (string, error)
}
