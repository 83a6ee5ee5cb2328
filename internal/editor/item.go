// Package editor implements the in-memory course editing core: ordered
// collections with optimistic mutation, drag reordering, the outline
// hierarchy and per-session expansion state. Persistence goes through
// the gateway package; user-visible save state goes through savestatus.
package editor

import (
	"strconv"
	"strings"
	"time"
)

// Category identifies one editable content kind of a course.
type Category string

const (
	CategoryObjectives   Category = "objectives"
	CategoryRequirements Category = "requirements"
	CategoryAudiences    Category = "audiences"
	CategoryMaterials    Category = "materials"
	CategoryOutline      Category = "outline"
)

// FlatCategories are the categories managed by plain item stores; the
// outline has its own hierarchical store.
var FlatCategories = []Category{
	CategoryObjectives,
	CategoryRequirements,
	CategoryAudiences,
	CategoryMaterials,
}

// ValidFlat reports whether c names a flat category.
func ValidFlat(c Category) bool {
	for _, fc := range FlatCategories {
		if c == fc {
			return true
		}
	}
	return false
}

// Item is one entry of an ordered collection. Positions within a
// sibling scope are always a contiguous permutation of 0..n-1.
type Item struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Position int    `json:"position"`
	Visible  bool   `json:"visible"`
}

// Lecture is an outline leaf. Its flags are mutated via plain update,
// never via reorder.
type Lecture struct {
	ID               string `json:"id"`
	SectionID        string `json:"section_id"`
	Title            string `json:"title"`
	Position         int    `json:"position"`
	IsFree           bool   `json:"is_free"`
	RequiresHomework bool   `json:"requires_homework"`
	VideoURL         string `json:"video_url,omitempty"`
}

// Section owns an ordered list of lectures. Section positions are
// scoped to the course; lecture positions to their section.
type Section struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	Visible  bool      `json:"visible"`
	Lectures []Lecture `json:"lectures"`
}

// tempID mints a client-side identifier for a not-yet-persisted entry.
// The gateway replaces it with a durable id on create.
func tempID() string {
	return "tmp-" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

// IsTempID reports whether id is client-minted.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, "tmp-")
}
