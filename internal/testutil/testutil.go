package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"booknotes/internal/book"
)

// Rating returns a pointer to r for use in book fixtures.
func Rating(r int) *int {
	return &r
}

// SampleBooks is the fixture collection used across handler and filter tests.
func SampleBooks() []book.Book {
	return []book.Book{
		{
			ID:        1,
			Title:     "Clean Code",
			Author:    "Robert C. Martin",
			CoverURL:  book.DefaultCoverURL,
			Tags:      []string{"programming"},
			Status:    book.StatusReading,
			DateAdded: "2024-01-10",
		},
		{
			ID:           2,
			Title:        "Sapiens",
			Author:       "Yuval Noah Harari",
			CoverURL:     book.DefaultCoverURL,
			Tags:         []string{"history"},
			Status:       book.StatusFinished,
			Rating:       Rating(5),
			DateAdded:    "2024-02-01",
			DateFinished: "2024-03-15",
		},
		{
			ID:        3,
			Title:     "Dune",
			Author:    "Frank Herbert",
			CoverURL:  book.DefaultCoverURL,
			Tags:      []string{"sci-fi", "classic"},
			Status:    book.StatusWishlist,
			DateAdded: "2024-04-20",
		},
	}
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// ErrorCode returns error.code of an error envelope, or "".
func (rr RecordResponse) ErrorCode() string {
	errBody, ok := rr.Body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errBody["code"].(string)
	return code
}

// Data returns the data member of a success envelope.
func (rr RecordResponse) Data() interface{} {
	return rr.Body["data"]
}

// DecodeData unmarshals the data member of a success envelope into dst.
func DecodeData(w *httptest.ResponseRecorder, dst any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, dst)
}

// AssertResponseCode checks if the response code matches expected
func AssertResponseCode(t interface {
	Errorf(format string, args ...any)
}, got, want int) {
	if got != want {
		t.Errorf("got status code %d, want %d", got, want)
	}
}
