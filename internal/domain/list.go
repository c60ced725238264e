// Package domain holds the building blocks shared by the ledger services:
// paginated list results and lifecycle hook registries.
package domain

// Default and maximum page sizes for list operations.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Page is the pagination window of a list request.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to sensible bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
