package book

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned when no book has the requested id.
var ErrNotFound = errors.New("book not found")

// DefaultCoverURL is used when a book is saved without a cover.
const DefaultCoverURL = "https://via.placeholder.com/120x180?text=No+Cover"

// DateLayout is the format of DateAdded and DateFinished.
const DateLayout = "2006-01-02"

// Status is the reading state of a book.
type Status string

const (
	StatusWishlist Status = "wishlist"
	StatusReading  Status = "reading"
	StatusFinished Status = "finished"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusReading, StatusFinished, StatusWishlist}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid status: %q", raw)
	}
	return s, nil
}

// Book is one tracked title.
type Book struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	CoverURL     string   `json:"cover_url"`
	Tags         []string `json:"tags"`
	Status       Status   `json:"status"`
	Rating       *int     `json:"rating,omitempty"`
	Description  string   `json:"description,omitempty"`
	DateAdded    string   `json:"date_added"`
	DateFinished string   `json:"date_finished,omitempty"`
	NotesCount   int      `json:"notes_count"`
}

// Clone returns a copy that shares no mutable state with b.
func (b Book) Clone() Book {
	b.Tags = slices.Clone(b.Tags)
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.Rating != nil {
		r := *b.Rating
		b.Rating = &r
	}
	return b
}

// Draft holds user supplied fields for a new book. ID, DateAdded and
// NotesCount are assigned by the store.
type Draft struct {
	Title       string   `json:"title" validate:"notblank,max=500"`
	Author      string   `json:"author" validate:"notblank,max=300"`
	CoverURL    string   `json:"cover_url" validate:"max=2048"`
	Tags        []string `json:"tags" validate:"dive,notblank,max=100"`
	Status      Status   `json:"status" validate:"required,oneof=wishlist reading finished"`
	Rating      *int     `json:"rating,omitempty" validate:"omitnil,gte=1,lte=5"`
	Description string   `json:"description,omitempty" validate:"max=10000"`
}

// Patch replaces the non-nil fields of the book with the given ID.
type Patch struct {
	ID          int      `json:"id" validate:"gt=0"`
	Title       *string  `json:"title,omitempty" validate:"omitnil,notblank,max=500"`
	Author      *string  `json:"author,omitempty" validate:"omitnil,notblank,max=300"`
	CoverURL    *string  `json:"cover_url,omitempty" validate:"omitnil,max=2048"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,dive,notblank,max=100"`
	Status      *Status  `json:"status,omitempty" validate:"omitnil,oneof=wishlist reading finished"`
	Rating      *int     `json:"rating,omitempty" validate:"omitnil,gte=1,lte=5"`
	ClearRating bool     `json:"clear_rating,omitempty"`
	Description *string  `json:"description,omitempty" validate:"omitnil,max=10000"`
	AddTags     []string `json:"add_tags,omitempty" validate:"omitempty,dive,notblank,max=100"`
	RemoveTags  []string `json:"remove_tags,omitempty"`
}

// Today formats t as a book date.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// NewBook builds the stored form of d. The caller supplies the id and the
// current date.
func NewBook(id int, d Draft, today string) Book {
	b := Book{
		ID:          id,
		Title:       d.Title,
		Author:      d.Author,
		CoverURL:    d.CoverURL,
		Tags:        NormalizeTags(d.Tags),
		Status:      d.Status,
		Description: d.Description,
		DateAdded:   today,
		NotesCount:  0,
	}
	if b.CoverURL == "" {
		b.CoverURL = DefaultCoverURL
	}
	if b.Status == "" {
		b.Status = StatusWishlist
	}
	if d.Rating != nil {
		r := *d.Rating
		b.Rating = &r
	}
	if b.Status == StatusFinished {
		b.DateFinished = today
	}
	return b
}

// ApplyPatch returns b with the fields of p applied. DateAdded and NotesCount
// never change. AddTags and RemoveTags are folded in after Tags, against the
// tags of b as stored, so repositories apply them inside their update lock. A patch carrying status finished always stamps DateFinished
// with today, even when the book was already finished; any other status
// clears it.
func ApplyPatch(b Book, p Patch, today string) Book {
	b = b.Clone()
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.CoverURL != nil {
		b.CoverURL = *p.CoverURL
		if b.CoverURL == "" {
			b.CoverURL = DefaultCoverURL
		}
	}
	if p.Tags != nil {
		b.Tags = NormalizeTags(p.Tags)
	}
	for _, t := range p.AddTags {
		b.Tags = AddTag(b.Tags, t)
	}
	for _, t := range p.RemoveTags {
		b.Tags = RemoveTag(b.Tags, t)
	}
	if p.ClearRating {
		b.Rating = nil
	}
	if p.Rating != nil {
		r := *p.Rating
		b.Rating = &r
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Status != nil {
		b.Status = *p.Status
		if b.Status == StatusFinished {
			b.DateFinished = today
		} else {
			b.DateFinished = ""
		}
	}
	return b
}

// NextID returns one more than the largest id in books, or 1 when empty.
func NextID(books []Book) int {
	maxID := 0
	for _, b := range books {
		maxID = max(maxID, b.ID)
	}
	return maxID + 1
}
