package book

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *MockRepository) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockRepository(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTPHandler(NewService(mockRepo, WithLogger(logger)), logger), mockRepo
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Code    string       `json:"code"`
		Details []FieldError `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHTTPHandler_List(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any()).Return(sampleBooks(), nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books?q=e&status=reading,wishlist", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		var books []Book
		require.NoError(t, json.Unmarshal(env.Data, &books))
		assert.Equal(t, []int{1, 3}, ids(books))
		assert.Equal(t, float64(2), env.Meta["total"])
	})

	t.Run("bad status", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books?status=borrowed", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), 2).Return(sampleBooks()[1], nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books/2", nil)
		r.SetPathValue("id", "2")

		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), 9).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books/9", nil)
		r.SetPathValue("id", "9")

		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, raw := range []string{"abc", "0", "-1"} {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/books/"+raw, nil)
			r.SetPathValue("id", raw)

			handler.Get(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		}
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().Add(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d Draft) (Book, error) {
			return NewBook(4, d, "2024-06-01"), nil
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books", jsonBody(t, map[string]any{
			"title":  "Dune",
			"author": "Frank Herbert",
			"status": "finished",
			"rating": 5,
		}))

		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var b Book
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &b))
		assert.Equal(t, 4, b.ID)
		assert.Equal(t, "2024-06-01", b.DateFinished)
	})

	t.Run("validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books", jsonBody(t, map[string]any{
			"title":  "",
			"author": "Frank Herbert",
			"rating": "11",
		}))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.NotEmpty(t, env.Error.Details)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader("{"))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BAD_REQUEST", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":"`+strings.Repeat("x", 64)+`"}`))
		r.Body = http.MaxBytesReader(w, r.Body, 16)

		handler.Create(w, r)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestHTTPHandler_CreateLegacy(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().Add(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d Draft) (Book, error) {
		assert.Equal(t, StatusWishlist, d.Status)
		return NewBook(12, d, "2024-06-01"), nil
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/books/create", jsonBody(t, CreateRequest{Title: "Emma", Author: "Jane Austen"}))

	handler.CreateLegacy(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":12}`, w.Body.String())
}

func TestHTTPHandler_Replace(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p Patch) (Book, error) {
		assert.Equal(t, 1, p.ID)
		assert.True(t, p.ClearRating)
		require.NotNil(t, p.Title)
		assert.Equal(t, "Clean Code", *p.Title)
		return ApplyPatch(sampleBooks()[0], p, "2024-06-01"), nil
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/books/1", jsonBody(t, Form{
		Title:  "Clean Code",
		Author: "Robert C. Martin",
		Status: "reading",
		Tags:   []string{"programming", "craft"},
	}))
	r.SetPathValue("id", "1")

	handler.Replace(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPHandler_Patch(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 1, Status: statusPtr(StatusFinished)}).
			Return(Book{ID: 1, Status: StatusFinished, DateFinished: "2024-06-01"}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/books/1", strings.NewReader(`{"id":77,"status":"finished"}`))
		r.SetPathValue("id", "1")

		handler.Patch(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/books/9", strings.NewReader(`{"title":"x"}`))
		r.SetPathValue("id", "9")

		handler.Patch(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("blank tag", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/books/1", strings.NewReader(`{"tags":["   "]}`))
		r.SetPathValue("id", "1")

		handler.Patch(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().Remove(gomock.Any(), 3).Return(nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/books/3", nil)
	r.SetPathValue("id", "3")
	handler.Delete(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)

	mockRepo.EXPECT().Remove(gomock.Any(), 3).Return(ErrNotFound)
	w = httptest.NewRecorder()
	handler.Delete(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_Tags(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("add", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 3, AddTags: []string{"classic"}}).
			Return(Book{ID: 3, Tags: []string{"sci-fi", "classic"}}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books/3/tags", strings.NewReader(`{"tag":"classic"}`))
		r.SetPathValue("id", "3")

		handler.AddTag(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("add blank", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books/3/tags", strings.NewReader(`{"tag":" "}`))
		r.SetPathValue("id", "3")

		handler.AddTag(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("remove", func(t *testing.T) {
		mockRepo.EXPECT().Update(gomock.Any(), Patch{ID: 3, RemoveTags: []string{"sci-fi"}}).Return(Book{ID: 3, Tags: []string{}}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/books/3/tags/sci-fi", nil)
		r.SetPathValue("id", "3")
		r.SetPathValue("tag", "sci-fi")

		handler.RemoveTag(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
