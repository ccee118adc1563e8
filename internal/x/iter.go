package x

import (
	"iter"
	"slices"
)

func Filter[T any](seq iter.Seq[T], fn func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if fn(v) && !yield(v) {
				return
			}
		}
	}
}

// Unique yields every value of seq once, in first-seen order.
func Unique[T comparable](seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		seen := make(map[T]struct{})
		for v := range seq {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			if !yield(v) {
				return
			}
		}
	}
}

// Collect filters s and returns the distinct survivors as a new slice.
func Collect[T comparable](s []T, keep func(T) bool) []T {
	return slices.Collect(Unique(Filter(slices.Values(s), keep)))
}
