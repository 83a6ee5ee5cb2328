package editor

import "testing"

func TestExpansion_SmallOutlineStartsExpanded(t *testing.T) {
	e := NewExpansion()
	e.Init([]string{"s1", "s2", "s3"})

	for _, id := range []string{"s1", "s2", "s3"} {
		if !e.Expanded(id) {
			t.Fatalf("expected %s expanded after init", id)
		}
	}
}

func TestExpansion_LargeOutlineStartsCollapsed(t *testing.T) {
	e := NewExpansion()
	e.Init([]string{"s1", "s2", "s3", "s4", "s5", "s6"})

	for _, id := range []string{"s1", "s6"} {
		if e.Expanded(id) {
			t.Fatalf("expected %s collapsed after init", id)
		}
	}
}

func TestExpansion_InitIsIdempotent(t *testing.T) {
	e := NewExpansion()
	e.Init([]string{"s1", "s2"})
	e.Set("s1", false)

	// A reload re-inits; the user's collapse must survive.
	e.Init([]string{"s1", "s2"})
	if e.Expanded("s1") {
		t.Fatalf("second init overwrote user toggle")
	}
}

func TestExpansion_ToggleAndForget(t *testing.T) {
	e := NewExpansion()
	e.Init([]string{"s1"})

	if got := e.Toggle("s1"); got {
		t.Fatalf("expected toggle to collapse s1")
	}
	if got := e.Toggle("s1"); !got {
		t.Fatalf("expected toggle to expand s1")
	}

	e.Forget("s1")
	if e.Expanded("s1") {
		t.Fatalf("expected forgotten section collapsed")
	}
	if _, ok := e.Snapshot()["s1"]; ok {
		t.Fatalf("expected forgotten section absent from snapshot")
	}
}
