package reports

import (
	"context"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
)

// Repository reads the journal lines that count towards balances, as decided
// by journal.InLedger: POSTED entries plus posted entries that were reversed,
// which net out against their reversal. Drafts never contribute.
type Repository interface {
	// SumByAccount returns debit/credit totals per account. Accounts without
	// matching lines are absent.
	SumByAccount(ctx context.Context, companyID id.ID, filter Filter) (map[id.ID]ledger.Totals, error)

	// Lines returns the lines of one account ordered by date, entry number
	// and line number.
	Lines(ctx context.Context, companyID, accountID id.ID, filter Filter) ([]PostedLine, error)
}

// Accounts reads the chart of accounts. ledger.Service satisfies it.
type Accounts interface {
	List(ctx context.Context, companyID id.ID, filter ledger.ListFilter) ([]ledger.Account, error)
	GetByID(ctx context.Context, companyID, accountID id.ID) (*ledger.Account, error)
}
