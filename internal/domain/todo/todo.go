// Package todo defines the Todo entity and the value types used to create,
// patch and page through it.
package todo

import (
	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/domain"
)

// Todo is a titled, optionally described, completable item.
type Todo struct {
	ID          uuid.UUID
	Title       string
	Description *string
	Completed   bool
}

// NewTodo carries the input for creating a Todo.
type NewTodo struct {
	Title       string
	Description *string
	Completed   *bool
}

// Validate reports a missing title.
func (in NewTodo) Validate() error {
	if in.Title == "" {
		return &domain.ValidationError{Fields: map[string]string{"title": domain.MsgRequired}}
	}
	return nil
}

// Patch carries the optional fields of a partial update. A nil field means
// the field was not supplied.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// New builds a Todo from the given input with a freshly generated v4 ID.
// Completed defaults to false when not supplied.
func New(in NewTodo) Todo {
	t := Todo{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: cloneString(in.Description),
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	return t
}

// Apply merges a patch into the Todo. Title and Completed are replaced only
// when supplied. Description is always overwritten with the patch value, so
// a patch without a description clears it.
func (t *Todo) Apply(p Patch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	t.Description = cloneString(p.Description)
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// Clone returns a deep copy of the Todo.
func (t *Todo) Clone() Todo {
	c := *t
	c.Description = cloneString(t.Description)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
