// Package storage holds the pieces shared by every todo store backend.
// The backends themselves live in the memory and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Compile-time interface check.
var _ ports.TodoStore = (*instrumented)(nil)

// Operation names used for span names and the operation metric attribute.
const (
	opList   = "list"
	opCreate = "create"
	opPatch  = "patch"
	opDelete = "delete"
)

// Result values for the result metric attribute.
const (
	resultSuccess  = "success"
	resultNotFound = "not_found"
	resultError    = "error"
)

const tracerName = "github.com/jsamuelsen11/todo-service/internal/adapters/storage"

type instrumented struct {
	next    ports.TodoStore
	backend string
	metrics *telemetry.Metrics
}

// Instrument wraps store so that every operation runs inside an OpenTelemetry
// client span named "todo.<operation>" and is counted in the storage metrics.
// The backend name ("memory", "postgres") becomes the db.system span attribute
// and the storage.backend metric attribute. If metrics is nil, metric
// recording is skipped.
func Instrument(store ports.TodoStore, backend string, metrics *telemetry.Metrics) ports.TodoStore {
	return &instrumented{next: store, backend: backend, metrics: metrics}
}

func (s *instrumented) List(ctx context.Context, page todo.Pagination) ([]todo.Todo, error) {
	ctx, finish := s.begin(ctx, opList)
	todos, err := s.next.List(ctx, page)
	finish(err)
	return todos, err
}

func (s *instrumented) Create(ctx context.Context, in todo.NewTodo) (*todo.Todo, error) {
	ctx, finish := s.begin(ctx, opCreate)
	created, err := s.next.Create(ctx, in)
	if created != nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("todo.id", created.ID.String()))
	}
	finish(err)
	return created, err
}

func (s *instrumented) Patch(ctx context.Context, id uuid.UUID, patch todo.Patch) (*todo.Todo, error) {
	ctx, finish := s.begin(ctx, opPatch, attribute.String("todo.id", id.String()))
	patched, err := s.next.Patch(ctx, id, patch)
	finish(err)
	return patched, err
}

func (s *instrumented) Delete(ctx context.Context, id uuid.UUID) (*todo.Todo, error) {
	ctx, finish := s.begin(ctx, opDelete, attribute.String("todo.id", id.String()))
	deleted, err := s.next.Delete(ctx, id)
	finish(err)
	return deleted, err
}

// begin starts the span for op and returns a func that closes it and records
// metrics for the outcome.
func (s *instrumented) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()

	tracer := otel.GetTracerProvider().Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "todo."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", s.backend))...),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			if !errors.Is(err, domain.ErrNotFound) {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
		s.recordMetrics(ctx, op, start, err)
	}
}

// recordMetrics records storage operation duration and count. Safe to call
// with nil metrics.
func (s *instrumented) recordMetrics(ctx context.Context, op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}

	result := resultSuccess
	switch {
	case errors.Is(err, domain.ErrNotFound):
		result = resultNotFound
	case err != nil:
		result = resultError
	}

	attrs := metric.WithAttributes(
		telemetry.AttrStorageBackend.String(s.backend),
		telemetry.AttrOperation.String(op),
		telemetry.AttrResult.String(result),
	)

	s.metrics.StorageOperationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	s.metrics.StorageOperationTotal.Add(ctx, 1, attrs)
}
