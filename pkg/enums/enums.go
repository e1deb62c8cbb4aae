// Package enums holds the closed string value sets stored in the database
// or exchanged with model providers.
package enums

import "slices"

// set lists the values a string enum accepts.
type set[T ~string] []T

func (s set[T]) has(v T) bool {
	return slices.Contains(s, v)
}
