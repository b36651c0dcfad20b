// Package memory provides the in-memory storage controller: a map of todos
// guarded by a single mutex.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.TodoStore     = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// errPoisoned is returned by every operation once a critical section has
// panicked while holding the lock.
var errPoisoned = fmt.Errorf("%w: store lock poisoned by an earlier panic", domain.ErrInternal)

// Store keeps todos in a map keyed by ID. One mutex covers the map and the
// insertion order; every operation holds it for its full duration.
type Store struct {
	mu       sync.Mutex
	todos    map[uuid.UUID]*todo.Todo
	order    []uuid.UUID
	// issued grows by one entry per Create for the life of the process.
	issued   map[uuid.UUID]bool
	poisoned bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		todos:  make(map[uuid.UUID]*todo.Todo),
		issued: make(map[uuid.UUID]bool),
	}
}

// List returns clones of the todos in insertion order, windowed by page.
func (s *Store) List(_ context.Context, page todo.Pagination) ([]todo.Todo, error) {
	var out []todo.Todo
	err := s.withLock(func() error {
		lo, hi := page.Window(len(s.order))
		out = make([]todo.Todo, 0, hi-lo)
		for _, id := range s.order[lo:hi] {
			out = append(out, s.todos[id].Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores a new todo. Any Completed flag in the input is ignored; a new
// todo always starts incomplete.
func (s *Store) Create(_ context.Context, in todo.NewTodo) (*todo.Todo, error) {
	in.Completed = nil
	t := todo.New(in)

	var out todo.Todo
	err := s.withLock(func() error {
		// IDs are never reissued, even after delete.
		for s.issued[t.ID] {
			t.ID = uuid.New()
		}
		s.issued[t.ID] = true
		stored := t.Clone()
		s.todos[t.ID] = &stored
		s.order = append(s.order, t.ID)
		out = stored.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Patch applies the patch to the stored todo. Description is always
// overwritten, see todo.Todo.Apply.
func (s *Store) Patch(_ context.Context, id uuid.UUID, patch todo.Patch) (*todo.Todo, error) {
	var out todo.Todo
	err := s.withLock(func() error {
		t, ok := s.todos[id]
		if !ok {
			return &todo.NotFoundError{Op: todo.OpPatch, ID: id}
		}
		t.Apply(patch)
		out = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the todo and returns its last state.
func (s *Store) Delete(_ context.Context, id uuid.UUID) (*todo.Todo, error) {
	var out todo.Todo
	err := s.withLock(func() error {
		t, ok := s.todos[id]
		if !ok {
			return &todo.NotFoundError{Op: todo.OpDelete, ID: id}
		}
		out = t.Clone()
		delete(s.todos, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Name returns the identifier used when this store is registered with a
// [ports.HealthRegistry].
func (s *Store) Name() string {
	return "memory"
}

// HealthCheck reports the store as failing once its lock has been poisoned.
func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned {
		return errPoisoned
	}
	return nil
}

// withLock runs fn while holding the store lock. A panic inside fn poisons
// the store before it propagates; a poisoned store rejects all later calls.
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	completed := false
	defer func() {
		if !completed {
			s.poisoned = true
		}
		s.mu.Unlock()
	}()

	if s.poisoned {
		completed = true
		return errPoisoned
	}
	err := fn()
	completed = true
	return err
}
