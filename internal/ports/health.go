package ports

import "context"

// HealthChecker is a named readiness check. Both todo stores implement it,
// and the postgres pool's Ping is wrapped as one.
type HealthChecker interface {
	// Name keys the check in readiness output, e.g. "memory" or "postgres-pool".
	Name() string

	// HealthCheck returns nil when the component can serve requests.
	HealthCheck(ctx context.Context) error
}

// HealthRegistry collects checkers and runs them for the readiness probe.
type HealthRegistry interface {
	Register(checker HealthChecker)

	// CheckAll returns one entry per checker name; nil means passing.
	CheckAll(ctx context.Context) map[string]error
}
