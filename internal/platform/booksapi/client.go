// Package booksapi is a client for the booknotes HTTP API.
package booksapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"booknotes/internal/book"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent: "booknotes-client/1.0",
		baseURL:   strings.TrimRight(baseURL, "/"),
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewBook is the body of POST /books/create.
type NewBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// CreateBookResponse is the reply of POST /books/create.
type CreateBookResponse struct {
	ID int `json:"id"`
}

// APIError is returned for any non-2xx reply.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []book.FieldError
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details []book.FieldError `json:"details"`
	} `json:"error"`
}

// Create calls the legacy POST /books/create endpoint.
func (c *Client) Create(ctx context.Context, nb NewBook) (CreateBookResponse, error) {
	var res CreateBookResponse
	err := c.do(ctx, http.MethodPost, "/books/create", nb, func(body []byte) error {
		return json.Unmarshal(body, &res)
	})
	return res, err
}

// CreateBook implements book.Mirror.
func (c *Client) CreateBook(ctx context.Context, title, author string) (int, error) {
	res, err := c.Create(ctx, NewBook{Title: title, Author: author})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

// ListBooks returns the books visible under q.
func (c *Client) ListBooks(ctx context.Context, q book.Query) ([]book.Book, error) {
	var statuses []string
	if q.Statuses.Reading {
		statuses = append(statuses, string(book.StatusReading))
	}
	if q.Statuses.Finished {
		statuses = append(statuses, string(book.StatusFinished))
	}
	if q.Statuses.Wishlist {
		statuses = append(statuses, string(book.StatusWishlist))
	}
	params := url.Values{}
	params.Set("q", q.Q)
	params.Set("status", strings.Join(statuses, ","))

	var books []book.Book
	err := c.doEnvelope(ctx, http.MethodGet, "/books?"+params.Encode(), nil, &books)
	return books, err
}

func (c *Client) GetBook(ctx context.Context, id int) (book.Book, error) {
	var b book.Book
	err := c.doEnvelope(ctx, http.MethodGet, bookPath(id), nil, &b)
	return b, err
}

// AddBook submits an add form.
func (c *Client) AddBook(ctx context.Context, f book.Form) (book.Book, error) {
	var b book.Book
	err := c.doEnvelope(ctx, http.MethodPost, "/books", f, &b)
	return b, err
}

// UpdateBook replaces every editable field of book id with f.
func (c *Client) UpdateBook(ctx context.Context, id int, f book.Form) (book.Book, error) {
	var b book.Book
	err := c.doEnvelope(ctx, http.MethodPut, bookPath(id), f, &b)
	return b, err
}

// PatchBook changes only the non-nil fields of p.
func (c *Client) PatchBook(ctx context.Context, p book.Patch) (book.Book, error) {
	var b book.Book
	err := c.doEnvelope(ctx, http.MethodPatch, bookPath(p.ID), p, &b)
	return b, err
}

func (c *Client) DeleteBook(ctx context.Context, id int) error {
	return c.doEnvelope(ctx, http.MethodDelete, bookPath(id), nil, nil)
}

func (c *Client) AddTag(ctx context.Context, id int, tag string) (book.Book, error) {
	var b book.Book
	err := c.doEnvelope(ctx, http.MethodPost, bookPath(id)+"/tags", map[string]string{"tag": tag}, &b)
	return b, err
}

func (c *Client) RemoveTag(ctx context.Context, id int, tag string) (book.Book, error) {
	var b book.Book
	err := c.doEnvelope(ctx, http.MethodDelete, bookPath(id)+"/tags/"+url.PathEscape(tag), nil, &b)
	return b, err
}

func bookPath(id int) string {
	return "/books/" + strconv.Itoa(id)
}

func (c *Client) doEnvelope(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, in, func(body []byte) error {
		if out == nil || len(body) == 0 {
			return nil
		}
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, out)
	})
}

func (c *Client) do(ctx context.Context, method, path string, in any, decode func([]byte) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	return decode(body)
}
