package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/jsamuelsen11/todo-service/internal/adapters/http/middleware"
)

// tag appends name to *trace on the way in and "/"+name on the way out.
func tag(trace *[]string, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trace = append(*trace, name)
			next.ServeHTTP(w, r)
			*trace = append(*trace, "/"+name)
		})
	}
}

func TestChain_Composition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(trace *[]string) []func(http.Handler) http.Handler
		want  []string
	}{
		{
			name:  "empty",
			build: func(*[]string) []func(http.Handler) http.Handler { return nil },
			want:  []string{"handler"},
		},
		{
			name: "first listed runs outermost",
			build: func(trace *[]string) []func(http.Handler) http.Handler {
				return []func(http.Handler) http.Handler{tag(trace, "a"), tag(trace, "b"), tag(trace, "c")}
			},
			want: []string{"a", "b", "c", "handler", "/c", "/b", "/a"},
		},
		{
			name: "nil entries skipped",
			build: func(trace *[]string) []func(http.Handler) http.Handler {
				return []func(http.Handler) http.Handler{nil, tag(trace, "a"), nil}
			},
			want: []string{"a", "handler", "/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var trace []string
			h := middleware.Chain(tt.build(&trace)...)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				trace = append(trace, "handler")
				w.WriteHeader(http.StatusNoContent)
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/todos/1", http.NoBody))

			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}
			if !slices.Equal(trace, tt.want) {
				t.Errorf("trace = %v, want %v", trace, tt.want)
			}
		})
	}
}

func TestChain_ServerPipeline(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := testLogger(&buf)

	var gotReqID, gotCorrID string
	h := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.OpenTelemetry(nil),
		middleware.Logging(logger),
		middleware.RateLimit(100, 10),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReqID = middleware.RequestIDFromContext(r.Context())
		gotCorrID = middleware.CorrelationIDFromContext(r.Context())
		_, _ = w.Write([]byte("[]"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/todos", http.NoBody))

	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("response = %d %q, want 200 \"[]\"", rec.Code, rec.Body.String())
	}
	if gotReqID == "" || rec.Header().Get("X-Request-ID") != gotReqID {
		t.Errorf("request ID context %q, header %q", gotReqID, rec.Header().Get("X-Request-ID"))
	}
	if gotCorrID != gotReqID {
		t.Errorf("correlation ID = %q, want fallback to request ID %q", gotCorrID, gotReqID)
	}
	for _, msg := range []string{"request started", "request completed"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("log output missing %q", msg)
		}
	}
}
