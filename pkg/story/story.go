// Package story defines the published-story domain model.
package story

import "github.com/shopspring/decimal"

// Category classifies a story for the category feeds.
type Category string

const (
	CategoryFiction    Category = "fiction"
	CategoryNonFiction Category = "non-fiction"
	CategoryPoetry     Category = "poetry"
	CategorySciFi      Category = "sci-fi"
	CategoryFantasy    Category = "fantasy"
	CategoryMystery    Category = "mystery"
	CategoryRomance    Category = "romance"
	CategoryEssay      Category = "essay"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryFiction, CategoryNonFiction, CategoryPoetry, CategorySciFi,
	CategoryFantasy, CategoryMystery, CategoryRomance, CategoryEssay,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label marks how a story was written.
type Label string

const (
	// LabelOriginal marks fully original content.
	LabelOriginal Label = "OC"
	// LabelAIAssisted marks content written with assistant help.
	LabelAIAssisted Label = "AI"
)

// Detail is the promotional metadata attached to a story.
type Detail struct {
	Description   string   `json:"description"`
	MatureContent bool     `json:"mature_content"`
	Tags          []string `json:"tags,omitempty"`
	Category      Category `json:"category"`
}

// Story is the published form of a draft. The body lives in a separate
// content record under the same id.
type Story struct {
	ID           uint64 `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Label        Label  `json:"label"`
	Detail       Detail `json:"detail"`
	Score        uint64 `json:"score"`
	SupportCount uint64 `json:"support_count"`
	ReadTime     uint32 `json:"read_time"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at,omitempty"`
}

// GetID implements repo.Auditable.
func (s *Story) GetID() uint64 { return s.ID }

// SetID implements repo.Auditable.
func (s *Story) SetID(id uint64) { s.ID = id }

// SetCreatedAt implements repo.Auditable.
func (s *Story) SetCreatedAt(unixNano int64) { s.CreatedAt = unixNano }

// SetUpdatedAt implements repo.Auditable.
func (s *Story) SetUpdatedAt(unixNano int64) { s.UpdatedAt = unixNano }

// Content is the body of a draft or story, stored under the owning record's
// id.
type Content struct {
	ID     uint64 `json:"id"`
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Support records one reader's accumulated support for a story.
type Support struct {
	Size   uint64          `json:"size"`
	Tokens decimal.Decimal `json:"tokens"`
}

// Supporter pairs a support record with the supporting reader.
type Supporter struct {
	Identity string          `json:"identity"`
	Size     uint64          `json:"size"`
	Tokens   decimal.Decimal `json:"tokens"`
}
