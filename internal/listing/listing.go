// Package listing filters, sorts and paginates in-memory lists and tracks
// bulk selections over them.
package listing

import (
	"slices"
	"strings"
)

// DefaultPageSize is used when Options.PageSize is not positive.
const DefaultPageSize = 10

type Predicate[T any] func(T) bool

// Options describes one view over a list. Filters are combined with AND.
type Options[T any] struct {
	Filters  []Predicate[T]
	Less     func(a, b T) bool
	Page     int
	PageSize int
}

// Page is one page of a filtered and sorted list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Apply filters, sorts and paginates items without modifying them. The
// requested page is clamped into [1, TotalPages].
func Apply[T any](items []T, opts Options[T]) Page[T] {
	matched := Filter(items, opts.Filters...)
	if opts.Less != nil {
		slices.SortStableFunc(matched, func(a, b T) int {
			switch {
			case opts.Less(a, b):
				return -1
			case opts.Less(b, a):
				return 1
			}
			return 0
		})
	}

	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := (len(matched) + size - 1) / size
	page := opts.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := min(start+size, len(matched))
	out := make([]T, 0, end-start)
	out = append(out, matched[start:end]...)

	return Page[T]{
		Items:      out,
		Page:       page,
		PageSize:   size,
		TotalItems: len(matched),
		TotalPages: totalPages,
	}
}

// Filter returns the items that satisfy every predicate, in order.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, p := range preds {
			if p != nil && !p(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// MatchText reports whether any field contains query, ignoring case and
// surrounding space. An empty query matches everything.
func MatchText(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Reverse flips a Less function.
func Reverse[T any](less func(a, b T) bool) func(a, b T) bool {
	return func(a, b T) bool { return less(b, a) }
}
