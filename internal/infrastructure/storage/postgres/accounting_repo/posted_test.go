package accounting_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/reports"
)

func TestPostedLines_OnlyLedgerEntries(t *testing.T) {
	company := id.New()

	sql, args, err := postedLines(company).Columns("l.account_id").ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "JOIN journal_entries e ON e.id = l.entry_id")
	assert.Contains(t, sql, "WHERE e.company_id = $1 AND (e.status = $2 OR (e.status = $3 AND e.reversed_by IS NOT NULL))")
	assert.Equal(t, []any{company.String(), journal.StatusPosted, journal.StatusReversed}, args, "ids bind through driver.Valuer")
	assert.NotContains(t, args, journal.StatusDraft)
}

func TestPostedLines_ReportFilterKeepsStatus(t *testing.T) {
	company := id.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	sql, args, err := applyFilter(postedLines(company), reports.Filter{From: &from, To: &to}).
		Columns("l.account_id").
		ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "e.status = $2")
	assert.Contains(t, sql, "e.date >= $4")
	assert.Contains(t, sql, "e.date <= $5")
	require.Len(t, args, 5)
	assert.Equal(t, journal.StatusPosted, args[1])
}

func TestInLedger(t *testing.T) {
	reversal := id.New()
	cases := []struct {
		name       string
		status     journal.Status
		reversedBy *id.ID
		want       bool
	}{
		{"draft", journal.StatusDraft, nil, false},
		{"posted", journal.StatusPosted, nil, true},
		{"voided draft", journal.StatusReversed, nil, false},
		{"reversed after posting", journal.StatusReversed, &reversal, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, journal.InLedger(tc.status, tc.reversedBy))
		})
	}
}
