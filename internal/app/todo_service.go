// Package app provides application services that orchestrate use cases by
// coordinating between domain logic and infrastructure through port interfaces.
package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/logging"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Compile-time check that TodoService implements ports.TodoService.
var _ ports.TodoService = (*TodoService)(nil)

// TodoService implements ports.TodoService on top of whichever TodoStore was
// wired at startup. It validates input and logs failures; the storage
// semantics belong to the store.
type TodoService struct {
	store  ports.TodoStore
	logger *slog.Logger
}

// NewTodoService creates a TodoService. A nil logger discards all output.
func NewTodoService(store ports.TodoStore, logger *slog.Logger) *TodoService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TodoService{
		store:  store,
		logger: logger,
	}
}

// ListTodos returns the page of todos selected by page.
func (s *TodoService) ListTodos(ctx context.Context, page todo.Pagination) ([]todo.Todo, error) {
	s.logger.DebugContext(ctx, "listing todos")

	if err := page.Validate(); err != nil {
		return nil, err
	}

	todos, err := s.store.List(ctx, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list todos",
			slog.String("operation", "ListTodos"),
			slog.Any("error", err),
		)
		return nil, err
	}

	return todos, nil
}

// CreateTodo validates and stores a new todo, returning it with its ID.
func (s *TodoService) CreateTodo(ctx context.Context, in todo.NewTodo) (*todo.Todo, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, in)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create todo",
			slog.String("operation", "CreateTodo"),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "created todo", slog.String("todo_id", created.ID.String()))
	return created, nil
}

// PatchTodo applies a partial update to an existing todo.
func (s *TodoService) PatchTodo(ctx context.Context, id uuid.UUID, patch todo.Patch) (*todo.Todo, error) {
	s.logger.InfoContext(ctx, "patching todo", slog.String("todo_id", id.String()))

	patched, err := s.store.Patch(ctx, id, patch)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to patch todo",
			slog.String("operation", "PatchTodo"),
			slog.String("todo_id", id.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	return patched, nil
}

// DeleteTodo removes a todo and returns its last state.
func (s *TodoService) DeleteTodo(ctx context.Context, id uuid.UUID) (*todo.Todo, error) {
	s.logger.InfoContext(ctx, "deleting todo", slog.String("todo_id", id.String()))

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete todo",
			slog.String("operation", "DeleteTodo"),
			slog.String("todo_id", id.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	return deleted, nil
}
