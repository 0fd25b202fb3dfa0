package derive

import "slices"

// Static is a non-watchable source: a fixed snapshot of values.
type Static []any

// Slice builds a static source from a copy of values.
func Slice(values ...any) Static {
	return Static(slices.Clone(values))
}

// Len returns the number of values.
func (s Static) Len() int { return len(s) }

// At returns the value at offset.
func (s Static) At(offset int) any { return s[offset] }
