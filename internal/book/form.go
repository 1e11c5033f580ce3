package book

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RatingInput is a rating as typed by the user. It decodes from a JSON number,
// a JSON string or null.
type RatingInput string

func (r *RatingInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RatingInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = RatingInput(n.String())
	return nil
}

// Form holds the raw fields of the add and edit dialogs.
type Form struct {
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	CoverURL    string      `json:"cover_url"`
	Tags        []string    `json:"tags"`
	Status      string      `json:"status"`
	Rating      RatingInput `json:"rating"`
	Description string      `json:"description"`
}

// FormFromBook prefills a form for editing b.
func FormFromBook(b Book) Form {
	f := Form{
		Title:       b.Title,
		Author:      b.Author,
		CoverURL:    b.CoverURL,
		Tags:        append([]string{}, b.Tags...),
		Status:      string(b.Status),
		Description: b.Description,
	}
	if b.Rating != nil {
		f.Rating = RatingInput(strconv.Itoa(*b.Rating))
	}
	return f
}

func (f *Form) AddTag(candidate string) {
	f.Tags = AddTag(f.Tags, candidate)
}

func (f *Form) RemoveTag(tag string) {
	f.Tags = RemoveTag(f.Tags, tag)
}

// Draft converts the form into a validated Draft.
func (f Form) Draft() (Draft, error) {
	status, err := f.status()
	if err != nil {
		return Draft{}, err
	}
	rating, err := f.rating()
	if err != nil {
		return Draft{}, err
	}

	d := normalizeDraft(Draft{
		Title:       f.Title,
		Author:      f.Author,
		CoverURL:    f.CoverURL,
		Tags:        f.Tags,
		Status:      status,
		Rating:      rating,
		Description: f.Description,
	})
	if err := ValidateStruct(d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Patch converts the form into a Patch replacing every editable field of
// book id. An empty rating clears the stored one.
func (f Form) Patch(id int) (Patch, error) {
	d, err := f.Draft()
	if err != nil {
		return Patch{}, err
	}
	p := Patch{
		ID:          id,
		Title:       &d.Title,
		Author:      &d.Author,
		CoverURL:    &d.CoverURL,
		Tags:        d.Tags,
		Status:      &d.Status,
		Rating:      d.Rating,
		ClearRating: d.Rating == nil,
		Description: &d.Description,
	}
	if err := ValidateStruct(p); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func (f Form) status() (Status, error) {
	if strings.TrimSpace(f.Status) == "" {
		return StatusWishlist, nil
	}
	s, err := ParseStatus(f.Status)
	if err != nil {
		return "", invalid("status", "status must be one of: wishlist reading finished")
	}
	return s, nil
}

func (f Form) rating() (*int, error) {
	raw := strings.TrimSpace(string(f.Rating))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid("rating", "rating must be a whole number")
	}
	return &n, nil
}

func normalizeDraft(d Draft) Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.CoverURL = strings.TrimSpace(d.CoverURL)
	if d.CoverURL == "" {
		d.CoverURL = DefaultCoverURL
	}
	d.Description = strings.TrimSpace(d.Description)
	d.Tags = NormalizeTags(d.Tags)
	if d.Status == "" {
		d.Status = StatusWishlist
	}
	return d
}

func normalizePatch(p Patch) Patch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	p.Title = trim(p.Title)
	p.Author = trim(p.Author)
	p.CoverURL = trim(p.CoverURL)
	p.Description = trim(p.Description)
	if p.Tags != nil {
		p.Tags = NormalizeTags(p.Tags)
	}
	return p
}
