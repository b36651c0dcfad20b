// Package postgres provides the PostgreSQL storage controller. Every
// operation is a single parameterized statement issued through a lazily
// connected pgx pool and guarded by a circuit breaker.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker/v2"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/config"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.TodoStore     = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	listSQL = `SELECT id, title, description, completed
FROM todos
ORDER BY id
OFFSET $1 ROWS
FETCH NEXT $2 ROWS ONLY`

	insertSQL = `INSERT INTO todos (id, title, description, completed)
VALUES ($1, $2, $3, $4)`

	patchSQL = `UPDATE todos SET
    title = CASE WHEN $1::boolean THEN $2::text ELSE title END,
    description = CASE WHEN $3::boolean THEN $4::text ELSE description END,
    completed = CASE WHEN $5::boolean THEN $6::boolean ELSE completed END
WHERE id = $7
RETURNING id, title, description, completed`

	deleteSQL = `DELETE FROM todos
WHERE id = $1
RETURNING id, title, description, completed`
)

// Store implements [ports.TodoStore] on PostgreSQL.
type Store struct {
	db      DB
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// New creates a Store over db. The breaker settings come from
// storage.circuit_breaker; pgx.ErrNoRows never counts as a failure.
func New(db DB, cfg config.CircuitBreakerConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: toUint32(cfg.HalfOpenLimit),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, pgx.ErrNoRows)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Store{db: db, breaker: cb, logger: logger}
}

// List returns todos in primary-key order. Missing fetch means unbounded.
func (s *Store) List(ctx context.Context, page todo.Pagination) ([]todo.Todo, error) {
	offset, fetch := int64(0), int64(math.MaxInt32)
	if page.Offset != nil {
		offset = int64(*page.Offset)
	}
	if page.Fetch != nil {
		fetch = int64(*page.Fetch)
	}

	var todos []todo.Todo
	err := s.run(func() error {
		rows, err := s.db.Query(ctx, listSQL, offset, fetch)
		if err != nil {
			return err
		}
		todos, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (todo.Todo, error) {
			return scanTodo(row)
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing todos: %w", domain.ErrInternal, err)
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	return todos, nil
}

// Create inserts a new todo. An explicit Completed flag in the input is
// honored.
func (s *Store) Create(ctx context.Context, in todo.NewTodo) (*todo.Todo, error) {
	t := todo.New(in)

	err := s.run(func() error {
		_, err := s.db.Exec(ctx, insertSQL, t.ID, t.Title, t.Description, t.Completed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: inserting todo: %w", domain.ErrInternal, err)
	}
	return &t, nil
}

// Patch updates only the supplied columns in a single statement. Any
// statement failure, not just a missing row, is reported as not found.
func (s *Store) Patch(ctx context.Context, id uuid.UUID, patch todo.Patch) (*todo.Todo, error) {
	var title, description string
	var completed bool
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Description != nil {
		description = *patch.Description
	}
	if patch.Completed != nil {
		completed = *patch.Completed
	}

	var t todo.Todo
	err := s.run(func() error {
		row := s.db.QueryRow(ctx, patchSQL,
			patch.Title != nil, title,
			patch.Description != nil, description,
			patch.Completed != nil, completed,
			id,
		)
		var err error
		t, err = scanTodo(row)
		return err
	})
	if err != nil {
		s.logCause(ctx, "Patch", id, err)
		return nil, &todo.NotFoundError{Op: todo.OpPatch, ID: id}
	}
	return &t, nil
}

// Delete removes the row and returns it. Any statement failure is reported
// as not found.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (*todo.Todo, error) {
	var t todo.Todo
	err := s.run(func() error {
		var err error
		t, err = scanTodo(s.db.QueryRow(ctx, deleteSQL, id))
		return err
	})
	if err != nil {
		s.logCause(ctx, "Delete", id, err)
		return nil, &todo.NotFoundError{Op: todo.OpDelete, ID: id}
	}
	return &t, nil
}

// Name returns the identifier used when this store is registered with a
// [ports.HealthRegistry].
func (s *Store) Name() string {
	return "postgres"
}

// HealthCheck reports database availability from the circuit breaker state.
// No network call is made.
func (s *Store) HealthCheck(_ context.Context) error {
	state := s.breaker.State()
	switch state {
	case gobreaker.StateClosed:
		return nil
	case gobreaker.StateHalfOpen:
		return errors.New("postgres: degraded (circuit breaker half-open)")
	case gobreaker.StateOpen:
		return errors.New("postgres: failing (circuit breaker open)")
	default:
		return fmt.Errorf("postgres: unknown circuit breaker state %v", state)
	}
}

func (s *Store) run(fn func() error) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// logCause keeps the real statement error visible when it is folded into a
// not-found result.
func (s *Store) logCause(ctx context.Context, op string, id uuid.UUID, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return
	}
	s.logger.WarnContext(ctx, "statement failed, reporting not found",
		slog.String("operation", op),
		slog.String("todo_id", id.String()),
		slog.Any("error", err),
	)
}

// scanTodo reads id, title, description, completed from a row.
func scanTodo(row pgx.Row) (todo.Todo, error) {
	var t todo.Todo
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed); err != nil {
		return todo.Todo{}, err
	}
	return t, nil
}

// toUint32 converts a non-negative int to uint32, clamping at the uint32
// maximum. Negative values are treated as zero.
func toUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
