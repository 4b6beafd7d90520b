// Package draft defines the working-draft domain model.
package draft

import "github.com/inkforge-labs/inkforge/pkg/story"

// Draft is an unpublished piece of writing. The body lives in a separate
// content record under the same id; Detail is optional until publish time.
type Draft struct {
	ID         uint64        `json:"id"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	Detail     *story.Detail `json:"detail,omitempty"`
	ReadTime   uint32        `json:"read_time"`
	AIAssisted bool          `json:"ai_assisted"`
	CreatedAt  int64         `json:"created_at"`
	UpdatedAt  int64         `json:"updated_at,omitempty"`
}

// New creates an unsaved draft for the given author.
func New(title string, detail *story.Detail, author string) *Draft {
	return &Draft{Title: title, Detail: detail, Author: author}
}

// GetID implements repo.Auditable.
func (d *Draft) GetID() uint64 { return d.ID }

// SetID implements repo.Auditable.
func (d *Draft) SetID(id uint64) { d.ID = id }

// SetCreatedAt implements repo.Auditable.
func (d *Draft) SetCreatedAt(unixNano int64) { d.CreatedAt = unixNano }

// SetUpdatedAt implements repo.Auditable.
func (d *Draft) SetUpdatedAt(unixNano int64) { d.UpdatedAt = unixNano }
