package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
)

// TodoStore is the storage controller contract. The in-memory and PostgreSQL
// adapters implement it with identical signatures; exactly one is wired at
// startup.
//
// Every method returns either success or exactly one error kind:
// domain.ErrInternal for fatal storage failures, or a *todo.NotFoundError
// (wrapping domain.ErrNotFound) for Patch and Delete on an unknown ID.
type TodoStore interface {
	// List returns todos in the store's natural order, skipping
	// page.Offset items and returning at most page.Fetch.
	List(ctx context.Context, page todo.Pagination) ([]todo.Todo, error)

	// Create stores a new todo under a freshly generated ID.
	Create(ctx context.Context, in todo.NewTodo) (*todo.Todo, error)

	// Patch updates the todo with the given ID and returns the result.
	Patch(ctx context.Context, id uuid.UUID, patch todo.Patch) (*todo.Todo, error)

	// Delete removes the todo with the given ID and returns its last state.
	Delete(ctx context.Context, id uuid.UUID) (*todo.Todo, error)
}
