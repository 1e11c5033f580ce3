package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"booknotes/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{service: service, logger: logger}
}

// CreateRequest is the body of the legacy POST /books/create endpoint.
type CreateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// CreateResponse is the reply of the legacy POST /books/create endpoint.
type CreateResponse struct {
	ID int `json:"id"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

// List handles GET /books?q=&status=reading,finished
//
// Status visibility may also be given as reading=, finished= and wishlist=
// booleans. Without any status parameter every status is shown.
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	statuses, err := ParseStatusFilter(query)
	if err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	q := Query{Q: query.Get("q"), Statuses: statuses}

	books, err := h.service.Search(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(r, w, books, map[string]any{
		"total":    len(books),
		"query":    q.Q,
		"statuses": q.Statuses,
	})
}

// Get handles GET /books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// Create handles POST /books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form Form
	if !decodeBody(w, r, &form) {
		return
	}
	draft, err := form.Draft()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.service.Create(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(r, w, b)
}

// CreateLegacy handles POST /books/create, which takes only a title and an
// author and answers with the bare new id.
func (h *HTTPHandler) CreateLegacy(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.service.Create(r.Context(), Draft{Title: req.Title, Author: req.Author})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONRaw(w, http.StatusCreated, CreateResponse{ID: b.ID})
}

// Replace handles PUT /books/{id}. Every editable field is overwritten.
func (h *HTTPHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form Form
	if !decodeBody(w, r, &form) {
		return
	}
	patch, err := form.Patch(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.service.Update(r.Context(), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// Patch handles PATCH /books/{id}. Omitted fields keep their value.
func (h *HTTPHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	patch.ID = id
	b, err := h.service.Update(r.Context(), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// Delete handles DELETE /books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// AddTag handles POST /books/{id}/tags
func (h *HTTPHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req tagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.service.AddTag(r.Context(), id, req.Tag)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// RemoveTag handles DELETE /books/{id}/tags/{tag}
func (h *HTTPHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.service.RemoveTag(r.Context(), id, r.PathValue("tag"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(r, w, b, nil)
}

// ParseStatusFilter reads the status toggles of a list request.
func ParseStatusFilter(values map[string][]string) (StatusFilter, error) {
	if raw, ok := values["status"]; ok {
		var f StatusFilter
		for _, part := range strings.Split(strings.Join(raw, ","), ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := ParseStatus(part)
			if err != nil {
				return StatusFilter{}, err
			}
			switch s {
			case StatusReading:
				f.Reading = true
			case StatusFinished:
				f.Finished = true
			case StatusWishlist:
				f.Wishlist = true
			}
		}
		return f, nil
	}

	f := AllStatuses()
	toggles := []struct {
		key string
		dst *bool
	}{
		{"reading", &f.Reading},
		{"finished", &f.Finished},
		{"wishlist", &f.Wishlist},
	}
	for _, t := range toggles {
		raw, ok := values[t.key]
		if !ok || len(raw) == 0 {
			continue
		}
		v, err := strconv.ParseBool(raw[0])
		if err != nil {
			return StatusFilter{}, fmt.Errorf("invalid %s flag: %q", t.key, raw[0])
		}
		*t.dst = v
	}
	return f, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "INVALID_ID", "Book id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.JSONErrorWithRequest(r, w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return false
		}
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]httpx.ErrorDetail, len(verr.Details))
		for i, d := range verr.Details {
			details[i] = httpx.ErrorDetail{Field: d.Field, Message: d.Message}
		}
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
	case errors.Is(err, ErrNotFound):
		httpx.JSONErrorWithRequest(r, w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFrom(r),
			"error", err,
		)
		httpx.JSONErrorWithRequest(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
