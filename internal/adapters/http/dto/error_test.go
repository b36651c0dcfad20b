package dto_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

var missingID = uuid.MustParse("6f1c1c1e-3b1a-4a36-9a4e-2f7f1b6a0c11")

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		target        string
		err           error
		wantStatus    int
		wantTitle     string
		wantDetail    string // "" means err.Error()
		wantTodoID    string
		wantLocations []string
	}{
		{
			name:       "bare not found",
			target:     "/todos",
			err:        domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "wrapped not found",
			target:     "/todos/" + missingID.String(),
			err:        fmt.Errorf("fetching todo: %w", domain.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "todo not found carries id",
			target:     "/todos/" + missingID.String(),
			err:        &todo.NotFoundError{Op: todo.OpDelete, ID: missingID},
			wantStatus: http.StatusNotFound,
			wantTitle:  "Not Found",
			wantDetail: "todo " + missingID.String() + " not found for delete",
			wantTodoID: missingID.String(),
		},
		{
			name:   "body validation",
			target: "/todos",
			err: &domain.ValidationError{Fields: map[string]string{
				"title":       "is required",
				"description": "expected string or null, but got number",
				"completed":   "expected boolean or null, but got string",
			}},
			wantStatus:    http.StatusBadRequest,
			wantTitle:     "Bad Request",
			wantLocations: []string{"body.completed", "body.description", "body.title"},
		},
		{
			name:   "located fields kept",
			target: "/todos?fetch=-1",
			err: &domain.ValidationError{Fields: map[string]string{
				"query.fetch": "must be a non-negative integer",
				"body":        "must be a valid JSON object",
			}},
			wantStatus:    http.StatusBadRequest,
			wantTitle:     "Bad Request",
			wantLocations: []string{"body", "query.fetch"},
		},
		{
			name:       "rate limited",
			target:     "/todos",
			err:        domain.ErrUnavailable,
			wantStatus: http.StatusTooManyRequests,
			wantTitle:  "Too Many Requests",
		},
		{
			name:       "internal hides cause",
			target:     "/todos",
			err:        fmt.Errorf("%w: listing todos: password authentication failed", domain.ErrInternal),
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
			wantDetail: "internal storage error",
		},
		{
			name:       "unknown error is internal",
			target:     "/todos",
			err:        errors.New("oops"),
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "Internal Server Error",
			wantDetail: "internal storage error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := dto.NewErrorResponse(httptest.NewRequest(http.MethodGet, tt.target, http.NoBody), tt.err)

			if got.Type != "about:blank" {
				t.Errorf("Type = %q, want about:blank", got.Type)
			}
			if got.Status != tt.wantStatus || got.Title != tt.wantTitle {
				t.Errorf("Status/Title = %d %q, want %d %q", got.Status, got.Title, tt.wantStatus, tt.wantTitle)
			}
			wantDetail := tt.wantDetail
			if wantDetail == "" {
				wantDetail = tt.err.Error()
			}
			if got.Detail != wantDetail {
				t.Errorf("Detail = %q, want %q", got.Detail, wantDetail)
			}
			if got.Instance != tt.target {
				t.Errorf("Instance = %q, want %q", got.Instance, tt.target)
			}
			if got.TodoID != tt.wantTodoID {
				t.Errorf("TodoID = %q, want %q", got.TodoID, tt.wantTodoID)
			}

			var locs []string
			for _, d := range got.Errors {
				locs = append(locs, d.Location)
			}
			if !slices.Equal(locs, tt.wantLocations) {
				t.Errorf("error locations = %v, want %v", locs, tt.wantLocations)
			}
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos", http.NoBody)
	dto.WriteErrorResponse(rec, req, &domain.ValidationError{Fields: map[string]string{"title": "is required"}})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	want := []dto.ErrorDetail{{Location: "body.title", Message: "is required"}}
	if resp.Status != http.StatusBadRequest || !slices.Equal(resp.Errors, want) {
		t.Errorf("body = %+v, want status 400 with %v", resp, want)
	}
}
