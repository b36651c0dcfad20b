package todo

import (
	"fmt"

	"github.com/jsamuelsen11/todo-service/internal/domain"
)

// Pagination limits a list operation to a window of the store's natural
// ordering. Offset is the number of items to skip (default 0); Fetch is the
// maximum number of items to return (default unbounded).
type Pagination struct {
	Offset *int
	Fetch  *int
}

// Validate rejects negative offsets and fetch counts.
func (p Pagination) Validate() error {
	fields := make(map[string]string)

	if p.Offset != nil && *p.Offset < 0 {
		fields["offset"] = fmt.Sprintf("must be >= 0, got %d", *p.Offset)
	}
	if p.Fetch != nil && *p.Fetch < 0 {
		fields["fetch"] = fmt.Sprintf("must be >= 0, got %d", *p.Fetch)
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Window returns the half-open index range [lo, hi) selected by the
// pagination over a sequence of n items. The range is empty when the
// offset is at or beyond n.
func (p Pagination) Window(n int) (lo, hi int) {
	lo = 0
	if p.Offset != nil && *p.Offset > 0 {
		lo = min(*p.Offset, n)
	}
	hi = n
	if p.Fetch != nil && *p.Fetch < n-lo {
		hi = lo + max(*p.Fetch, 0)
	}
	return lo, hi
}
