// Package gateway defines the persistence contract behind the course
// editor. Implementations must return fully typed records; nothing
// schemaless crosses this boundary.
package gateway

import (
	"context"
	"errors"
)

// Item is one persisted entry of a flat ordered collection.
type Item struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Position int    `json:"position"`
	Visible  bool   `json:"visible"`
}

// LectureRecord is one persisted lecture row, scoped to its section.
type LectureRecord struct {
	ID               string `json:"id"`
	SectionID        string `json:"section_id"`
	Title            string `json:"title"`
	Position         int    `json:"position"`
	IsFree           bool   `json:"is_free"`
	RequiresHomework bool   `json:"requires_homework"`
	VideoURL         string `json:"video_url,omitempty"`
}

// SectionRecord is one persisted section with its ordered lectures.
type SectionRecord struct {
	ID       string          `json:"id"`
	CourseID string          `json:"course_id"`
	Title    string          `json:"title"`
	Position int             `json:"position"`
	Visible  bool            `json:"visible"`
	Lectures []LectureRecord `json:"lectures"`
}

// Reposition assigns one item its new position within its sibling scope.
type Reposition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// Gateway defines all persistence operations for the course editor.
type Gateway interface {
	// Flat collections
	ListItems(ctx context.Context, courseID, category string) ([]Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, courseID, category, id, content string) error
	DeleteItem(ctx context.Context, courseID, category, id string) error
	RepositionItems(ctx context.Context, courseID, category string, moves []Reposition) error
	SetItemsVisibility(ctx context.Context, courseID, category string, visible bool) error

	// Outline (fail-whole: either the full tree is persisted or nothing is).
	// The returned records carry durable ids for any client-created entries.
	GetOutline(ctx context.Context, courseID string) ([]SectionRecord, error)
	SaveOutline(ctx context.Context, courseID string, sections []SectionRecord) ([]SectionRecord, error)

	// Saved flags gate the default-content seeder.
	SavedFlag(ctx context.Context, courseID, category string) (bool, error)
	MarkSaved(ctx context.Context, courseID, category string) error
}

// Sentinel errors
var ErrNotFound = errors.New("record not found")
