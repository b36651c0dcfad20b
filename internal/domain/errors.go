package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for errors.Is() checking.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	// ErrInternal marks a fatal internal storage failure (poisoned lock,
	// unexpected statement error). Surfaced as a server fault, never retried.
	ErrInternal = errors.New("internal storage error")
	// ErrUnavailable marks a request rejected before reaching storage,
	// e.g. by the inbound rate limiter.
	ErrUnavailable = errors.New("unavailable")
	// ErrConfiguration marks a missing or invalid startup setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnect marks an unreachable database or a failed migration at startup.
	ErrConnect = errors.New("database connect error")
)

// MsgRequired is the validation message for missing required fields.
const MsgRequired = "is required"

// ValidationError provides programmatic access to field-level validation failures.
// Use errors.Is(err, ErrValidation) for simple checks, or errors.As(err, &verr) to
// access verr.Fields for per-field error details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
