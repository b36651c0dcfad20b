// Package health tracks the readiness checks of the todo stores and their
// connections. GET /health/ready reports whatever CheckAll returns.
package health

import (
	"context"
	"sync"

	"github.com/jsamuelsen11/todo-service/internal/ports"
)

var (
	_ ports.HealthRegistry = (*Registry)(nil)
	_ ports.HealthChecker  = namedCheck{}
)

// Registry implements [ports.HealthRegistry]. Checkers are normally
// registered once at startup, but Register and CheckAll may race safely.
type Registry struct {
	mu       sync.RWMutex
	checkers []ports.HealthChecker
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register adds checker.
func (r *Registry) Register(checker ports.HealthChecker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, checker)
	r.mu.Unlock()
}

// CheckAll runs every checker in parallel and keys the results by name; a
// nil entry is a passing check. Of two checkers sharing a name, the later
// registration is reported.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	checkers := append([]ports.HealthChecker(nil), r.checkers...)
	r.mu.RUnlock()

	errs := make([]error, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Go(func() { errs[i] = c.HealthCheck(ctx) })
	}
	wg.Wait()

	results := make(map[string]error, len(checkers))
	for i, c := range checkers {
		results[c.Name()] = errs[i]
	}
	return results
}

// CheckFunc names fn as a checker; wire.go uses it for the pool's Ping.
func CheckFunc(name string, fn func(context.Context) error) ports.HealthChecker {
	return namedCheck{name: name, fn: fn}
}

type namedCheck struct {
	name string
	fn   func(context.Context) error
}

func (c namedCheck) Name() string { return c.name }

func (c namedCheck) HealthCheck(ctx context.Context) error { return c.fn(ctx) }
