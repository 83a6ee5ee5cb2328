package editor

import (
	"reflect"
	"testing"
)

func ids(items []Item) []string { return OrderedIDs(items) }

func fixture(idList ...string) []Item {
	out := make([]Item, len(idList))
	for i, id := range idList {
		out[i] = Item{ID: id, Content: "c-" + id, Position: i, Visible: true}
	}
	return out
}

func TestMove_DragOntoEarlierItem(t *testing.T) {
	in := fixture("A", "B", "C", "D")

	// Dragging C onto A inserts C where A was; A and B shift right.
	got := MoveItems(in, "C", "A")
	want := []string{"C", "A", "B", "D"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}

func TestMove_DragOntoLaterItem(t *testing.T) {
	in := fixture("A", "B", "C", "D")

	got := MoveItems(in, "A", "C")
	want := []string{"B", "C", "A", "D"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}

func TestMove_DragOntoLast(t *testing.T) {
	in := fixture("A", "B", "C", "D")

	got := MoveItems(in, "A", "D")
	want := []string{"B", "C", "D", "A"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}

func TestMove_SameIDIsNoop(t *testing.T) {
	in := fixture("A", "B", "C")

	got := MoveItems(in, "B", "B")
	if !reflect.DeepEqual(ids(got), []string{"A", "B", "C"}) {
		t.Fatalf("expected unchanged order, got %v", ids(got))
	}
}

func TestMove_UnknownIDsAreNoops(t *testing.T) {
	in := fixture("A", "B", "C")

	if got := MoveItems(in, "Z", "A"); !reflect.DeepEqual(ids(got), []string{"A", "B", "C"}) {
		t.Fatalf("unknown source: expected unchanged order, got %v", ids(got))
	}
	if got := MoveItems(in, "A", "Z"); !reflect.DeepEqual(ids(got), []string{"A", "B", "C"}) {
		t.Fatalf("unknown target: expected unchanged order, got %v", ids(got))
	}
}

func TestMove_DoesNotMutateInput(t *testing.T) {
	in := fixture("A", "B", "C")
	_ = MoveItems(in, "C", "A")
	if !reflect.DeepEqual(ids(in), []string{"A", "B", "C"}) {
		t.Fatalf("input mutated: %v", ids(in))
	}
}

func TestMove_GenericOverSections(t *testing.T) {
	in := []Section{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}}

	got := Move(in, func(s Section) string { return s.ID }, "s3", "s1")
	want := []string{"s3", "s1", "s2"}
	for i, s := range got {
		if s.ID != want[i] {
			t.Fatalf("expected %v at %d, got %v", want[i], i, s.ID)
		}
	}
}
