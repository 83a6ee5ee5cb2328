package editor

// Move computes the sibling order after a drag: the element identified
// by sourceID is removed and reinserted at the index targetID occupied
// in the input. This is an array move, not a swap: everything between
// source and target shifts by one. The input is never mutated.
//
// No-op cases return the input slice unchanged: equal ids, or either id
// absent from the sibling set. A target index past the end of the
// shortened slice clamps to the last valid insertion point.
func Move[T any](items []T, idOf func(T) string, sourceID, targetID string) []T {
	if sourceID == targetID {
		return items
	}

	src, dst := -1, -1
	for i, it := range items {
		switch idOf(it) {
		case sourceID:
			src = i
		case targetID:
			dst = i
		}
	}
	if src < 0 || dst < 0 {
		return items
	}

	moved := items[src]
	out := make([]T, 0, len(items))
	out = append(out, items[:src]...)
	out = append(out, items[src+1:]...)
	if dst > len(out) {
		dst = len(out)
	}
	out = append(out[:dst], append([]T{moved}, out[dst:]...)...)
	return out
}

// MoveItems is Move specialized for flat collection items.
func MoveItems(items []Item, sourceID, targetID string) []Item {
	return Move(items, func(it Item) string { return it.ID }, sourceID, targetID)
}

// OrderedIDs projects a sibling set onto its id order, the form the
// store's Reorder operation consumes.
func OrderedIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
