package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// maxJSONBodyBytes is the maximum allowed size for a JSON request body (1 MB).
const maxJSONBodyBytes = 1 << 20

// parseID extracts a UUID path parameter from the chi URL params.
func parseID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, &domain.ValidationError{
			Fields: map[string]string{"path." + param: "must be a valid UUID"},
		}
	}
	return id, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// decodeTodoCreate decodes and validates a create body, returning the domain
// input. On failure it writes a 400 response and returns false.
func decodeTodoCreate(w http.ResponseWriter, r *http.Request) (todo.NewTodo, bool) {
	req, err := dto.DecodeCreateTodo(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return todo.NewTodo{}, false
	}
	return req.ToDomain(), true
}

// decodeTodoPatch decodes and validates a patch body, returning the domain
// patch. On failure it writes a 400 response and returns false.
func decodeTodoPatch(w http.ResponseWriter, r *http.Request) (todo.Patch, bool) {
	req, err := dto.DecodePatchTodo(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return todo.Patch{}, false
	}
	return req.ToDomain(), true
}
