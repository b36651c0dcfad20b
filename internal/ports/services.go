package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// TodoService defines the service port for todo operations.
// Implemented by the application layer; called by inbound adapters (handlers).
type TodoService interface {
	// ListTodos returns the window of todos selected by the pagination.
	ListTodos(ctx context.Context, page todo.Pagination) ([]todo.Todo, error)

	// CreateTodo creates a new todo and returns it with its generated ID.
	CreateTodo(ctx context.Context, in todo.NewTodo) (*todo.Todo, error)

	// PatchTodo applies a partial update and returns the updated todo.
	// Returns a *todo.NotFoundError if the todo does not exist.
	PatchTodo(ctx context.Context, id uuid.UUID, patch todo.Patch) (*todo.Todo, error)

	// DeleteTodo removes a todo and returns its last known state.
	// Returns a *todo.NotFoundError if the todo does not exist.
	DeleteTodo(ctx context.Context, id uuid.UUID) (*todo.Todo, error)
}
