// Package catalog projects arbitrary item lists into bounded choice sets
// suitable for a select-menu prompt. It is shared by the quote browser and
// the clip browser; only the label and description projections differ.
package catalog

import (
	"strconv"
)

const (
	// MaxChoices is the hard upper bound of options in one prompt.
	MaxChoices = 25

	// MaxLabelLen and MaxDescriptionLen bound option text, in characters,
	// including the truncation marker.
	MaxLabelLen       = 100
	MaxDescriptionLen = 100

	// Ellipsis marks truncated text.
	Ellipsis = "…"
)

// Choice is one presentable option.
type Choice struct {
	Label       string
	Value       string
	Description string
}

// Projection describes how an item is rendered into a [Choice]. Label is
// required. Description may be nil. Value may be nil, in which case the
// item's absolute position in the input list is used.
type Projection[T any] struct {
	Label       func(T) string
	Description func(T) string
	Value       func(index int, item T) string
}

// Page is one window of choices over a longer item list.
type Page struct {
	Choices []Choice

	// Number is the zero-based index of this page; Count is the number of
	// pages, at least 1.
	Number int
	Count  int
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool { return p.Number+1 < p.Count }

// HasPrev reports whether a page precedes this one.
func (p Page) HasPrev() bool { return p.Number > 0 }

// Build returns choices for the first maxItems items, in input order. The
// value of each choice is its position in items as a decimal string. A
// maxItems outside (0, [MaxChoices]] is clamped to MaxChoices.
func Build[T any](items []T, label func(T) string, description func(T) string, maxItems int) []Choice {
	size := clampSize(maxItems)
	if len(items) > size {
		items = items[:size]
	}
	return project(items, 0, Projection[T]{Label: label, Description: description})
}

// BuildPage returns the page-th window of size items. Out-of-range page
// numbers are clamped to the first or last page.
func BuildPage[T any](items []T, p Projection[T], page, size int) Page {
	size = clampSize(size)
	count := (len(items) + size - 1) / size
	if count == 0 {
		count = 1
	}
	page = min(max(page, 0), count-1)

	start := page * size
	end := min(start+size, len(items))
	if start > end {
		start = end
	}
	return Page{
		Choices: project(items[start:end], start, p),
		Number:  page,
		Count:   count,
	}
}

func project[T any](items []T, offset int, p Projection[T]) []Choice {
	out := make([]Choice, 0, len(items))
	for i, item := range items {
		idx := offset + i
		c := Choice{Value: strconv.Itoa(idx)}
		if p.Value != nil {
			c.Value = p.Value(idx, item)
		}
		if p.Label != nil {
			c.Label = Truncate(p.Label(item), MaxLabelLen)
		}
		if c.Label == "" {
			c.Label = c.Value
		}
		if p.Description != nil {
			c.Description = Truncate(p.Description(item), MaxDescriptionLen)
		}
		out = append(out, c)
	}
	return out
}

func clampSize(n int) int {
	if n <= 0 || n > MaxChoices {
		return MaxChoices
	}
	return n
}

// Truncate shortens s to at most limit characters. A truncated result ends
// with [Ellipsis], which counts towards the limit.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	return string(runes[:limit-1]) + Ellipsis
}
