package gateway

import (
	"context"
	"errors"
	"testing"
)

var (
	_ Gateway = (*MemoryGateway)(nil)
	_ Gateway = (*PostgresGateway)(nil)
	_ Gateway = (*CachedGateway)(nil)
)

func seedItems(t *testing.T, g *MemoryGateway, contents ...string) []Item {
	t.Helper()
	ctx := context.Background()
	out := make([]Item, 0, len(contents))
	for i, c := range contents {
		it, err := g.CreateItem(ctx, Item{CourseID: "course-1", Category: "objectives", Content: c, Position: i, Visible: true})
		if err != nil {
			t.Fatalf("create %s: %v", c, err)
		}
		out = append(out, it)
	}
	return out
}

func TestMemoryGateway_ListOrdersByPosition(t *testing.T) {
	g := NewMemoryGateway()
	seedItems(t, g, "a", "b", "c")
	ctx := context.Background()

	items, err := g.ListItems(ctx, "course-1", "objectives")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, it := range items {
		if it.Position != i {
			t.Fatalf("expected position order, got %+v", items)
		}
	}

	// Other scopes stay empty.
	other, err := g.ListItems(ctx, "course-1", "materials")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty scope, got %+v", other)
	}
}

func TestMemoryGateway_UpdateScopeMismatch(t *testing.T) {
	g := NewMemoryGateway()
	created := seedItems(t, g, "a")[0]
	ctx := context.Background()

	if err := g.UpdateItem(ctx, "course-2", "objectives", created.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong course, got %v", err)
	}
	if err := g.UpdateItem(ctx, "course-1", "materials", created.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong category, got %v", err)
	}
	if err := g.UpdateItem(ctx, "course-1", "objectives", created.ID, "x"); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestMemoryGateway_Reposition(t *testing.T) {
	g := NewMemoryGateway()
	created := seedItems(t, g, "a", "b")
	ctx := context.Background()

	moves := []Reposition{{ID: created[0].ID, Position: 1}, {ID: created[1].ID, Position: 0}}
	if err := g.RepositionItems(ctx, "course-1", "objectives", moves); err != nil {
		t.Fatalf("reposition: %v", err)
	}

	items, _ := g.ListItems(ctx, "course-1", "objectives")
	if items[0].Content != "b" || items[1].Content != "a" {
		t.Fatalf("expected swapped order, got %+v", items)
	}
}

func TestMemoryGateway_SaveOutlineMintsDurableIDs(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	sent := []SectionRecord{{
		ID:       "tmp-100",
		Title:    "Basics",
		Position: 0,
		Visible:  true,
		Lectures: []LectureRecord{{ID: "tmp-101", SectionID: "tmp-100", Title: "Intro", Position: 0}},
	}}
	saved, err := g.SaveOutline(ctx, "course-1", sent)
	if err != nil {
		t.Fatalf("save outline: %v", err)
	}
	if len(saved) != 1 || len(saved[0].Lectures) != 1 {
		t.Fatalf("unexpected saved tree: %+v", saved)
	}
	if isClientID(saved[0].ID) || isClientID(saved[0].Lectures[0].ID) {
		t.Fatalf("expected durable ids, got %+v", saved)
	}
	if saved[0].Lectures[0].SectionID != saved[0].ID {
		t.Fatalf("expected lecture re-parented to durable section id")
	}

	// Resaving with durable ids keeps them.
	again, err := g.SaveOutline(ctx, "course-1", saved)
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if again[0].ID != saved[0].ID || again[0].Lectures[0].ID != saved[0].Lectures[0].ID {
		t.Fatalf("expected stable ids on resave")
	}
}

func TestMemoryGateway_SaveOutlineIsFailWholeReplacement(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	if _, err := g.SaveOutline(ctx, "course-1", []SectionRecord{{ID: "tmp-1", Title: "A"}, {ID: "tmp-2", Title: "B"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := g.SaveOutline(ctx, "course-1", []SectionRecord{{ID: "tmp-3", Title: "C"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := g.GetOutline(ctx, "course-1")
	if len(got) != 1 || got[0].Title != "C" {
		t.Fatalf("expected wholesale replacement, got %+v", got)
	}
}

func TestMemoryGateway_SavedFlags(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	flag, err := g.SavedFlag(ctx, "course-1", "objectives")
	if err != nil || flag {
		t.Fatalf("expected unset flag, got %v %v", flag, err)
	}
	if err := g.MarkSaved(ctx, "course-1", "objectives"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if flag, _ = g.SavedFlag(ctx, "course-1", "objectives"); !flag {
		t.Fatalf("expected set flag")
	}
	if flag, _ = g.SavedFlag(ctx, "course-1", "materials"); flag {
		t.Fatalf("expected per-category isolation")
	}
}
