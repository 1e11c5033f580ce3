package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/books", nil)
	r = r.WithContext(ContextWithRequestID(r.Context(), "req-1"))

	JSONSuccess(r, w, map[string]string{"key": "value"}, map[string]any{"total": 10})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Error("Expected Content-Type application/json")
	}

	var response SuccessResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("Expected success to be true")
	}
	if response.Data == nil {
		t.Error("Expected data to be present")
	}
	if response.Meta["request_id"] != "req-1" || response.Meta["total"] != float64(10) {
		t.Errorf("Unexpected meta: %v", response.Meta)
	}
}

func TestJSONSuccess_NoMeta(t *testing.T) {
	w := httptest.NewRecorder()

	JSONSuccess(httptest.NewRequest(http.MethodGet, "/", nil), w, []int{}, nil)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if _, ok := raw["meta"]; ok {
		t.Error("Expected meta to be omitted")
	}
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	details := []ErrorDetail{
		{Field: "title", Message: "title cannot be empty"},
	}

	JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Success {
		t.Error("Expected success to be false")
	}
	if response.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %s", response.Error.Code)
	}
	if len(response.Error.Details) != 1 || response.Error.Details[0].Field != "title" {
		t.Errorf("Unexpected details: %v", response.Error.Details)
	}
}

func TestJSONRaw(t *testing.T) {
	w := httptest.NewRecorder()

	JSONRaw(w, http.StatusCreated, map[string]int{"id": 3})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"id\":3}\n" {
		t.Errorf("Expected bare body, got %q", got)
	}
}
