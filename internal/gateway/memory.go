package gateway

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryGateway is a development and test implementation backed by maps.
type MemoryGateway struct {
	mu       sync.RWMutex
	items    map[string]Item            // id -> item
	sections map[string][]SectionRecord // courseID -> ordered sections
	saved    map[string]bool            // courseID + "/" + category
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		items:    make(map[string]Item),
		sections: make(map[string][]SectionRecord),
		saved:    make(map[string]bool),
	}
}

func (g *MemoryGateway) ListItems(_ context.Context, courseID, category string) ([]Item, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Item
	for _, it := range g.items {
		if it.CourseID == courseID && it.Category == category {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if out == nil {
		out = []Item{}
	}
	return out, nil
}

func (g *MemoryGateway) CreateItem(_ context.Context, item Item) (Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	item.ID = uuid.NewString()
	g.items[item.ID] = item
	return item, nil
}

func (g *MemoryGateway) UpdateItem(_ context.Context, courseID, category, id, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	it, ok := g.items[id]
	if !ok || it.CourseID != courseID || it.Category != category {
		return ErrNotFound
	}
	it.Content = content
	g.items[id] = it
	return nil
}

func (g *MemoryGateway) DeleteItem(_ context.Context, courseID, category, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	it, ok := g.items[id]
	if !ok || it.CourseID != courseID || it.Category != category {
		return ErrNotFound
	}
	delete(g.items, id)
	return nil
}

func (g *MemoryGateway) RepositionItems(_ context.Context, _, _ string, moves []Reposition) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, m := range moves {
		it, ok := g.items[m.ID]
		if !ok {
			return ErrNotFound
		}
		it.Position = m.Position
		g.items[m.ID] = it
	}
	return nil
}

func (g *MemoryGateway) SetItemsVisibility(_ context.Context, courseID, category string, visible bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, it := range g.items {
		if it.CourseID == courseID && it.Category == category {
			it.Visible = visible
			g.items[id] = it
		}
	}
	return nil
}

func (g *MemoryGateway) GetOutline(_ context.Context, courseID string) ([]SectionRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return cloneSections(g.sections[courseID]), nil
}

func (g *MemoryGateway) SaveOutline(_ context.Context, courseID string, sections []SectionRecord) ([]SectionRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	saved := cloneSections(sections)
	for i := range saved {
		saved[i].CourseID = courseID
		if isClientID(saved[i].ID) {
			saved[i].ID = uuid.NewString()
		}
		for j := range saved[i].Lectures {
			saved[i].Lectures[j].SectionID = saved[i].ID
			if isClientID(saved[i].Lectures[j].ID) {
				saved[i].Lectures[j].ID = uuid.NewString()
			}
		}
	}
	g.sections[courseID] = saved
	return cloneSections(saved), nil
}

func (g *MemoryGateway) SavedFlag(_ context.Context, courseID, category string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.saved[courseID+"/"+category], nil
}

func (g *MemoryGateway) MarkSaved(_ context.Context, courseID, category string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved[courseID+"/"+category] = true
	return nil
}

// isClientID reports whether an id was minted by the editor rather than
// a durable store.
func isClientID(id string) bool {
	return id == "" || strings.HasPrefix(id, "tmp-")
}

func cloneSections(in []SectionRecord) []SectionRecord {
	if in == nil {
		return []SectionRecord{}
	}
	out := make([]SectionRecord, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Lectures = make([]LectureRecord, len(s.Lectures))
		copy(out[i].Lectures, s.Lectures)
	}
	return out
}
