package posting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
)

type fakeJournal struct {
	created []journal.CreateInput
	posted  []id.ID
	failOn  string
}

func (f *fakeJournal) Create(_ context.Context, companyID id.ID, in journal.CreateInput) (*journal.Entry, error) {
	if in.Reference == f.failOn {
		return nil, errors.New("boom")
	}
	lines := make([]journal.Line, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = journal.Line{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit}
	}
	if err := journal.ValidateLines(lines); err != nil {
		return nil, err
	}
	f.created = append(f.created, in)
	e := journal.NewEntry(companyID, id.New(), in.Date, in.Description, lines)
	e.Number = int64(len(f.created))
	return e, nil
}

func (f *fakeJournal) Post(_ context.Context, _ id.ID, entryID id.ID) (*journal.Entry, error) {
	f.posted = append(f.posted, entryID)
	return &journal.Entry{Status: journal.StatusPosted}, nil
}

func result(proceeds, cost string) *tax.CapitalGainResult {
	p, c := types.MustMoney(proceeds), types.MustMoney(cost)
	return &tax.CapitalGainResult{
		DisposalID:     "tx-" + proceeds,
		AssetSymbol:    "BTC",
		DisposalDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Quantity:       types.MustMoney("1.5"),
		TotalProceeds:  p,
		TotalCostBasis: c,
		Gain:           p.Sub(c),
	}
}

func TestLines_Gain(t *testing.T) {
	lines := Lines(result("60000", "35000"), DefaultAccounts())

	require.Len(t, lines, 3)
	assert.Equal(t, "572", lines[0].AccountCode)
	assert.True(t, lines[0].Debit.Equal(types.MustMoney("60000")))
	assert.Equal(t, "250", lines[1].AccountCode)
	assert.True(t, lines[1].Credit.Equal(types.MustMoney("35000")))
	assert.Equal(t, "766", lines[2].AccountCode)
	assert.True(t, lines[2].Credit.Equal(types.MustMoney("25000")))
	assert.Equal(t, "Capital gain on 1.5 BTC", lines[2].Description)
}

func TestLines_LossAndZeroLines(t *testing.T) {
	lines := Lines(result("3200", "4000"), DefaultAccounts())
	require.Len(t, lines, 3)
	assert.Equal(t, "666", lines[2].AccountCode)
	assert.True(t, lines[2].Debit.Equal(types.MustMoney("800")))

	lines = Lines(result("5000", "5000"), DefaultAccounts())
	assert.Len(t, lines, 2, "no gain line on break-even")

	lines = Lines(result("5000", "0"), DefaultAccounts())
	require.Len(t, lines, 2, "no asset line without cost basis")
	assert.Equal(t, "766", lines[1].AccountCode)
}

func TestAccounts_WithDefaults(t *testing.T) {
	a := Accounts{Gain: "7660001"}.WithDefaults()

	assert.Equal(t, "7660001", a.Gain)
	assert.Equal(t, "572", a.Proceeds)
	assert.Equal(t, "666", a.Loss)
}

func TestDisposalPoster_Post(t *testing.T) {
	j := &fakeJournal{}
	p := NewDisposalPoster(j, Accounts{})

	e, err := p.Post(context.Background(), id.New(), result("60000", "35000"))
	require.NoError(t, err)
	assert.Equal(t, journal.StatusDraft, e.Status)
	assert.Empty(t, j.posted)

	require.Len(t, j.created, 1)
	in := j.created[0]
	assert.Equal(t, "Disposal of 1.5 BTC", in.Description)
	assert.Equal(t, "tx-60000", in.Reference)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), in.Date)

	_, err = p.Post(context.Background(), id.New(), nil)
	assert.Error(t, err)
}

func TestDisposalPoster_AutoPostAll(t *testing.T) {
	j := &fakeJournal{failOn: "tx-900"}
	p := NewDisposalPoster(j, DefaultAccounts()).WithAutoPost(true)

	entries, err := p.PostAll(context.Background(), id.New(), []*tax.CapitalGainResult{
		result("60000", "35000"),
		result("3200", "4000"),
		result("900", "100"),
		result("50", "10"),
	})

	require.Error(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, j.posted, 2)
	for _, e := range entries {
		assert.Equal(t, journal.StatusPosted, e.Status)
	}
}
