package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jsamuelsen11/todo-service/internal/adapters/storage"
	"github.com/jsamuelsen11/todo-service/internal/domain"
	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/todo-service/mocks"
)

// Span tests are NOT parallel because they modify the global TracerProvider.

func setupTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return exporter
}

func setupMetrics(t *testing.T) (*telemetry.Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(t.Context())
	})

	metrics, err := telemetry.NewMetrics(mp, "test-service")
	if err != nil {
		t.Fatalf("NewMetrics error = %v", err)
	}
	return metrics, reader
}

// operationCounts returns storage.operation.total keyed by "operation/result".
func operationCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect error = %v", err)
	}

	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "storage.operation.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("storage.operation.total data = %T, want Sum[int64]", m.Data)
			}
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value(telemetry.AttrOperation)
				result, _ := dp.Attributes.Value(telemetry.AttrResult)
				counts[op.AsString()+"/"+result.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func spanAttrs(span tracetest.SpanStub) map[attribute.Key]string {
	attrs := make(map[attribute.Key]string, len(span.Attributes))
	for _, a := range span.Attributes {
		attrs[a.Key] = a.Value.Emit()
	}
	return attrs
}

func TestInstrument_CreateSpan(t *testing.T) {
	exporter := setupTracer(t)

	id := uuid.New()
	in := todo.NewTodo{Title: "Buy milk"}
	inner := mocks.NewMockTodoStore(t)
	inner.EXPECT().Create(mock.Anything, in).Return(&todo.Todo{ID: id, Title: "Buy milk"}, nil)

	store := storage.Instrument(inner, "memory", nil)
	if _, err := store.Create(context.Background(), in); err != nil {
		t.Fatalf("Create error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "todo.create" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "todo.create")
	}

	attrs := spanAttrs(spans[0])
	if attrs["db.system"] != "memory" {
		t.Errorf("db.system = %q, want %q", attrs["db.system"], "memory")
	}
	if attrs["todo.id"] != id.String() {
		t.Errorf("todo.id = %q, want %q", attrs["todo.id"], id.String())
	}
}

func TestInstrument_NotFoundIsNotSpanError(t *testing.T) {
	exporter := setupTracer(t)

	id := uuid.New()
	inner := mocks.NewMockTodoStore(t)
	inner.EXPECT().Delete(mock.Anything, id).Return(nil, &todo.NotFoundError{Op: todo.OpDelete, ID: id})

	store := storage.Instrument(inner, "postgres", nil)
	_, err := store.Delete(context.Background(), id)

	var nf *todo.NotFoundError
	if !errors.As(err, &nf) || nf.ID != id {
		t.Fatalf("Delete error = %v, want NotFoundError for %s", err, id)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("span status = Error, want unset for not-found")
	}
	if got := spanAttrs(spans[0])["todo.id"]; got != id.String() {
		t.Errorf("todo.id = %q, want %q", got, id.String())
	}
}

func TestInstrument_InternalErrorMarksSpan(t *testing.T) {
	exporter := setupTracer(t)

	inner := mocks.NewMockTodoStore(t)
	inner.EXPECT().List(mock.Anything, todo.Pagination{}).Return(nil, domain.ErrInternal)

	store := storage.Instrument(inner, "postgres", nil)
	if _, err := store.List(context.Background(), todo.Pagination{}); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("List error = %v, want ErrInternal", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status code = %d, want %d (Error)", spans[0].Status.Code, codes.Error)
	}
}

func TestInstrument_RecordsMetrics(t *testing.T) {
	t.Parallel()

	metrics, reader := setupMetrics(t)

	id := uuid.New()
	title := "Walk the dog"
	inner := mocks.NewMockTodoStore(t)
	inner.EXPECT().List(mock.Anything, todo.Pagination{}).Return([]todo.Todo{}, nil)
	inner.EXPECT().Patch(mock.Anything, id, todo.Patch{Title: &title}).
		Return(&todo.Todo{ID: id, Title: title}, nil)
	inner.EXPECT().Delete(mock.Anything, id).Return(nil, &todo.NotFoundError{Op: todo.OpDelete, ID: id})
	inner.EXPECT().Create(mock.Anything, todo.NewTodo{}).Return(nil, domain.ErrInternal)

	store := storage.Instrument(inner, "memory", metrics)
	ctx := context.Background()
	_, _ = store.List(ctx, todo.Pagination{})
	_, _ = store.Patch(ctx, id, todo.Patch{Title: &title})
	_, _ = store.Delete(ctx, id)
	_, _ = store.Create(ctx, todo.NewTodo{})

	counts := operationCounts(t, reader)
	want := map[string]int64{
		"list/success":     1,
		"patch/success":    1,
		"delete/not_found": 1,
		"create/error":     1,
	}
	for key, n := range want {
		if counts[key] != n {
			t.Errorf("storage.operation.total[%s] = %d, want %d", key, counts[key], n)
		}
	}
}

func TestInstrument_PassesResultsThrough(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	desc := "2 litres"
	want := []todo.Todo{{ID: id, Title: "Buy milk", Description: &desc}}
	page := todo.Pagination{Offset: intPtr(1), Fetch: intPtr(1)}

	inner := mocks.NewMockTodoStore(t)
	inner.EXPECT().List(mock.Anything, page).Return(want, nil)

	got, err := storage.Instrument(inner, "memory", nil).List(context.Background(), page)
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(got) != 1 || got[0].ID != id || *got[0].Description != desc {
		t.Errorf("List = %+v, want %+v", got, want)
	}
}

func intPtr(v int) *int { return &v }
