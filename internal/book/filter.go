package book

import "strings"

// StatusFilter is the set of status toggles controlling visibility. A book
// is visible only when the flag for its status is set, so the zero value
// hides everything.
type StatusFilter struct {
	Reading  bool `json:"reading"`
	Finished bool `json:"finished"`
	Wishlist bool `json:"wishlist"`
}

// AllStatuses returns a filter that shows every status.
func AllStatuses() StatusFilter {
	return StatusFilter{Reading: true, Finished: true, Wishlist: true}
}

// Allows reports whether books with status s pass the filter.
func (f StatusFilter) Allows(s Status) bool {
	switch s {
	case StatusReading:
		return f.Reading
	case StatusFinished:
		return f.Finished
	case StatusWishlist:
		return f.Wishlist
	default:
		return false
	}
}

// Query is a free-text search plus status filter.
type Query struct {
	Q        string       `json:"q"`
	Statuses StatusFilter `json:"statuses"`
}

// Filter returns the books matching query and statuses, in input order.
//
// The query matches case-insensitively as a substring of the title, the
// author, or any tag. An empty query matches every book.
func Filter(books []Book, query string, statuses StatusFilter) []Book {
	needle := strings.ToLower(query)
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if statuses.Allows(b.Status) && matchesText(b, needle) {
			out = append(out, b)
		}
	}
	return out
}

func matchesText(b Book, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(b.Title), needle) ||
		strings.Contains(strings.ToLower(b.Author), needle) {
		return true
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
