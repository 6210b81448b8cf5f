// Package sliceutil holds small slice helpers shared by the workflow and
// timeline editors.
package sliceutil

// MoveItem relocates the element at index from to index to, shifting the
// elements in between. It works on a copy and returns it; out-of-range
// indices return an unchanged copy.
func MoveItem[T any](s []T, from, to int) []T {
	out := make([]T, len(s))
	copy(out, s)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}

	item := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out
}
