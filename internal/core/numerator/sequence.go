// Package numerator provides the domain contract for gap-free journal numbering.
// Implementations live in pkg/numerator (PostgreSQL) and in MockSequence (tests).
package numerator

import (
	"context"
	"fmt"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
)

// Key scopes a counter to one company and fiscal year.
type Key struct {
	CompanyID    id.ID
	FiscalYearID id.ID
}

// String renders the key in the form stored by counter tables.
func (k Key) String() string {
	return fmt.Sprintf("JE_%s_%s", k.CompanyID, k.FiscalYearID)
}

// Sequence hands out strictly increasing numbers per Key.
//
// Next must run inside the caller's transaction so the number and the row
// that uses it commit or roll back together.
type Sequence interface {
	Next(ctx context.Context, key Key) (int64, error)

	// Reset sets the last issued value (migrations, imports).
	Reset(ctx context.Context, key Key, last int64) error
}
