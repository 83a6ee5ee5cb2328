package editor

import "sync"

// autoExpandLimit is the section count at or below which a freshly
// loaded outline starts fully expanded. A UX heuristic, not an
// invariant.
const autoExpandLimit = 5

// Expansion tracks which sections are shown expanded. Pure UI state:
// it is never persisted and never touches positions.
type Expansion struct {
	mu          sync.Mutex
	open        map[string]bool
	initialized bool
}

func NewExpansion() *Expansion {
	return &Expansion{open: make(map[string]bool)}
}

// Init applies the initial policy once per session: small outlines
// start fully expanded, large ones fully collapsed. Later calls are
// no-ops so a reload never discards the user's toggles.
func (e *Expansion) Init(sectionIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return
	}
	e.initialized = true
	if len(sectionIDs) > autoExpandLimit {
		return
	}
	for _, id := range sectionIDs {
		e.open[id] = true
	}
}

// Toggle flips a section and returns the new state.
func (e *Expansion) Toggle(sectionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open[sectionID] = !e.open[sectionID]
	return e.open[sectionID]
}

// Set forces a section's state.
func (e *Expansion) Set(sectionID string, open bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open[sectionID] = open
}

// Expanded reports a single section's state.
func (e *Expansion) Expanded(sectionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open[sectionID]
}

// Forget drops state for a deleted section.
func (e *Expansion) Forget(sectionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.open, sectionID)
}

// Snapshot returns a copy of the expanded set.
func (e *Expansion) Snapshot() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(e.open))
	for k, v := range e.open {
		out[k] = v
	}
	return out
}
