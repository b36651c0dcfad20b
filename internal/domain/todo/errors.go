package todo

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/domain"
)

// Op names the storage operation that failed to find its target.
type Op string

const (
	OpPatch  Op = "patch"
	OpDelete Op = "delete"
)

// NotFoundError reports that the Todo addressed by a patch or delete does not
// exist. It unwraps to domain.ErrNotFound.
type NotFoundError struct {
	Op Op
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("todo %s not found for %s", e.ID, e.Op)
}

func (e *NotFoundError) Unwrap() error {
	return domain.ErrNotFound
}
