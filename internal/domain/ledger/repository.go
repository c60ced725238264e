package ledger

import (
	"context"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
)

// ListFilter narrows account listings.
type ListFilter struct {
	Type       *AccountType
	ActiveOnly bool
	Search     string
}

// Repository is the chart-of-accounts port, implemented by the accounting-setup
// collaborator (postgres.AccountRepo in this module).
type Repository interface {
	Create(ctx context.Context, a *Account) error
	// Update fails with CONCURRENT_MODIFICATION when the stored version is
	// not a.Version-1.
	Update(ctx context.Context, a *Account) error

	// GetByID and GetByCode return apperror NotFound when missing.
	GetByID(ctx context.Context, companyID, accountID id.ID) (*Account, error)
	GetByCode(ctx context.Context, companyID id.ID, code string) (*Account, error)

	ExistsByCode(ctx context.Context, companyID id.ID, code string) (bool, error)
	ListByCodes(ctx context.Context, companyID id.ID, codes []string) ([]Account, error)
	List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Account, error)

	// SumPosted returns debit/credit totals of POSTED journal lines per account.
	SumPosted(ctx context.Context, companyID id.ID, accountIDs []id.ID, period Period) (map[id.ID]Totals, error)
}
