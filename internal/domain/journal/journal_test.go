package journal

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	appctx "github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/context"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/numerator"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/fiscal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
)

// memRepo stores entries in memory. It also implements fiscal.EntryCounter.
type memRepo struct {
	mu         sync.Mutex
	entries    map[id.ID]*Entry
	failUpdate error
}

func newMemRepo() *memRepo { return &memRepo{entries: map[id.ID]*Entry{}} }

func clone(e *Entry) *Entry {
	cp := *e
	cp.Lines = append([]Line(nil), e.Lines...)
	return &cp
}

func (r *memRepo) Create(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.entries {
		if other.CompanyID == e.CompanyID && other.FiscalYearID == e.FiscalYearID && other.Number == e.Number {
			return apperror.NewDuplicate("Journal entry", "number", "")
		}
	}
	r.entries[e.ID] = clone(e)
	return nil
}

func (r *memRepo) Update(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	stored, ok := r.entries[e.ID]
	if !ok {
		return apperror.NewNotFound("Journal entry", e.ID)
	}
	if stored.Version != e.Version-1 {
		return apperror.NewConcurrentModification("Journal entry", e.ID)
	}
	lines := stored.Lines
	cp := clone(e)
	cp.Lines = lines
	r.entries[e.ID] = cp
	return nil
}

func (r *memRepo) ReplaceLines(_ context.Context, entryID id.ID, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryID].Lines = append([]Line(nil), lines...)
	return nil
}

func (r *memRepo) DeleteLines(_ context.Context, entryID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryID].Lines = nil
	return nil
}

func (r *memRepo) Delete(_ context.Context, _, entryID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, entryID)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, companyID, entryID id.ID) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[entryID]; ok && e.CompanyID == companyID {
		return clone(e), nil
	}
	return nil, apperror.NewNotFound("Journal entry", entryID)
}

func (r *memRepo) List(_ context.Context, companyID id.ID, f ListFilter) (domain.ListResult[*Entry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*Entry
	for _, e := range r.entries {
		if e.CompanyID != companyID || (f.Status != nil && e.Status != *f.Status) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.Search)) {
			continue
		}
		items = append(items, clone(e))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Number > items[j].Number })
	total := int64(len(items))
	if f.Offset < len(items) {
		items = items[f.Offset:]
	} else {
		items = nil
	}
	if len(items) > f.Limit {
		items = items[:f.Limit]
	}
	return domain.ListResult[*Entry]{Items: items, TotalCount: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (r *memRepo) EntryStats(_ context.Context, companyID, fyID id.ID) (fiscal.EntryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := fiscal.EntryStats{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, e := range r.entries {
		if e.CompanyID != companyID || e.FiscalYearID != fyID {
			continue
		}
		st.Total++
		if st.FirstDate == nil || e.Date.Before(*st.FirstDate) {
			d := e.Date
			st.FirstDate = &d
		}
		if st.LastDate == nil || e.Date.After(*st.LastDate) {
			d := e.Date
			st.LastDate = &d
		}
		switch e.Status {
		case StatusDraft:
			st.Draft++
		case StatusPosted:
			st.Posted++
			t := e.Totals()
			st.TotalDebit = st.TotalDebit.Add(t.Debit)
			st.TotalCredit = st.TotalCredit.Add(t.Credit)
		case StatusReversed:
			st.Reversed++
		}
	}
	return st, nil
}

// snapshotTx restores the repository when the unit of work fails.
type snapshotTx struct{ repo *memRepo }

func (s snapshotTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.repo.mu.Lock()
	saved := make(map[id.ID]*Entry, len(s.repo.entries))
	for k, v := range s.repo.entries {
		saved[k] = clone(v)
	}
	s.repo.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.repo.mu.Lock()
		s.repo.entries = saved
		s.repo.mu.Unlock()
		return err
	}
	return nil
}

type yearsFake struct {
	years map[id.ID]*fiscal.FiscalYear

	// onShare runs before a share-locked read returns, standing in for a
	// transaction that committed just before the lock was granted.
	onShare    func(fy *fiscal.FiscalYear)
	shareLocks int
}

func (y *yearsFake) GetForShare(ctx context.Context, companyID, fyID id.ID) (*fiscal.FiscalYear, error) {
	fy, err := y.GetByID(ctx, companyID, fyID)
	if err != nil {
		return nil, err
	}
	y.shareLocks++
	if y.onShare != nil {
		y.onShare(fy)
	}
	return fy, nil
}

func (y *yearsFake) GetByID(_ context.Context, companyID, fyID id.ID) (*fiscal.FiscalYear, error) {
	if fy, ok := y.years[fyID]; ok && fy.CompanyID == companyID {
		return fy, nil
	}
	return nil, apperror.NewNotFound("Fiscal year", fyID)
}

func (y *yearsFake) FindByDate(_ context.Context, companyID id.ID, date time.Time) (*fiscal.FiscalYear, error) {
	for _, fy := range y.years {
		if fy.CompanyID == companyID && fy.Contains(date) {
			return fy, nil
		}
	}
	return nil, apperror.NewNotFound("Fiscal year", date)
}

type accountsFake struct {
	byCode map[string]ledger.Account
}

func (a *accountsFake) ResolveCodes(_ context.Context, _ id.ID, codes []string) (map[string]ledger.Account, error) {
	out := map[string]ledger.Account{}
	for _, c := range codes {
		acc, ok := a.byCode[c]
		if !ok {
			return nil, apperror.NewNotFound("Account", c)
		}
		out[c] = acc
	}
	return out, nil
}

type fixture struct {
	svc     *Service
	repo    *memRepo
	seq     *numerator.MockSequence
	company id.ID
	fy      *fiscal.FiscalYear
	years   *yearsFake
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func m(s string) decimal.Decimal { return types.MustMoney(s) }

func newFixture() *fixture {
	company := id.New()
	fy := fiscal.NewFiscalYear(company, "2024", day("2024-01-01"), day("2024-12-31"))
	years := &yearsFake{years: map[id.ID]*fiscal.FiscalYear{fy.ID: fy}}

	accounts := &accountsFake{byCode: map[string]ledger.Account{}}
	for code, t := range map[string]ledger.AccountType{
		"572": ledger.Asset, "250": ledger.Asset, "766": ledger.Income, "666": ledger.Expense, "100": ledger.Equity,
	} {
		accounts.byCode[code] = *ledger.NewAccount(company, code, "Account "+code, t)
	}

	repo := newMemRepo()
	seq := numerator.NewMockSequence()
	svc := NewService(repo, years, accounts, seq, snapshotTx{repo: repo})
	svc.now = func() time.Time { return day("2024-06-15") }
	return &fixture{svc: svc, repo: repo, seq: seq, company: company, fy: fy, years: years}
}

func balanced(amount string) []LineInput {
	return []LineInput{
		{AccountCode: "572", Debit: m(amount), Description: "bank"},
		{AccountCode: "100", Credit: m(amount), Description: "capital"},
	}
}

func (f *fixture) create(t *testing.T, amount string) *Entry {
	t.Helper()
	e, err := f.svc.Create(context.Background(), f.company, CreateInput{
		Date: day("2024-03-10"), Description: "capital contribution", Lines: balanced(amount),
	})
	require.NoError(t, err)
	return e
}

func TestValidateLines(t *testing.T) {
	ok := []Line{{Debit: m("100")}, {Credit: m("99.9995")}}
	assert.NoError(t, ValidateLines(ok), "within 0.001")

	err := ValidateLines([]Line{{Debit: m("100")}, {Credit: m("99")}})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Debits (100) must equal credits (99)")

	err = ValidateLines([]Line{{Debit: m("100"), Credit: m("100")}})
	assert.True(t, apperror.IsValidation(err), "single line")

	err = ValidateLines([]Line{{Debit: m("-5")}, {Credit: m("-5")}})
	assert.True(t, apperror.IsValidation(err), "negative amounts")

	assert.NoError(t, ValidateLines([]Line{{Debit: m("10"), Credit: m("4")}, {Credit: m("6")}}), "two-sided lines are allowed")
}

func TestCreate_AssignsSequentialNumbers(t *testing.T) {
	f := newFixture()

	a := f.create(t, "100")
	b := f.create(t, "200")

	assert.Equal(t, int64(1), a.Number)
	assert.Equal(t, int64(2), b.Number)
	assert.Equal(t, StatusDraft, a.Status)
	assert.Equal(t, f.fy.ID, a.FiscalYearID)
	require.Len(t, a.Lines, 2)
	assert.Equal(t, 1, a.Lines[0].LineNumber)
	assert.Equal(t, "572", a.Lines[0].AccountCode)
	assert.False(t, id.IsNil(a.Lines[0].AccountID))
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.company, CreateInput{
		Date: day("2024-03-10"),
		Lines: []LineInput{
			{AccountCode: "572", Debit: m("100")},
			{AccountCode: "100", Credit: m("90")},
		},
	})
	assert.True(t, apperror.IsValidation(err), "unbalanced")

	_, err = f.svc.Create(ctx, f.company, CreateInput{Date: day("2024-03-10"), Lines: []LineInput{
		{AccountCode: "999", Debit: m("1")},
		{AccountCode: "100", Credit: m("1")},
	}})
	assert.True(t, apperror.IsNotFound(err), "unknown account")

	_, err = f.svc.Create(ctx, f.company, CreateInput{Date: day("2025-03-10"), Lines: balanced("1")})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "No fiscal year found for the entry date")

	_, err = f.svc.Create(ctx, f.company, CreateInput{FiscalYearID: &f.fy.ID, Date: day("2025-03-10"), Lines: balanced("1")})
	assert.True(t, apperror.IsValidation(err), "date outside given fiscal year")

	require.NoError(t, f.fy.Close(time.Now()))
	_, err = f.svc.Create(ctx, f.company, CreateInput{Date: day("2024-03-10"), Lines: balanced("1")})
	assert.True(t, apperror.IsValidation(err), "closed fiscal year")

	assert.Empty(t, f.repo.entries)
}

func TestCreate_RechecksFiscalYearInsideTransaction(t *testing.T) {
	f := newFixture()
	f.years.onShare = func(fy *fiscal.FiscalYear) {
		if !fy.IsClosed {
			require.NoError(t, fy.Close(time.Now()))
		}
	}

	_, err := f.svc.Create(context.Background(), f.company, CreateInput{Date: day("2024-03-10"), Lines: balanced("1")})

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "closed fiscal year")
	assert.Equal(t, 1, f.years.shareLocks)
	assert.Empty(t, f.repo.entries, "no draft lands in a closed year")
}

func TestPost_RechecksFiscalYearInsideTransaction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, "10")
	f.years.onShare = func(fy *fiscal.FiscalYear) {
		if !fy.IsClosed {
			require.NoError(t, fy.Close(time.Now()))
		}
	}

	_, err := f.svc.Post(ctx, f.company, e.ID)

	assert.True(t, apperror.IsValidation(err))
	stored, err := f.svc.GetByID(ctx, f.company, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
}

func TestWrites_ShareLockFiscalYear(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e := f.create(t, "10")
	assert.Equal(t, 1, f.years.shareLocks, "create")
	_, err := f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.years.shareLocks, "post")
	_, err = f.svc.Void(ctx, f.company, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, f.years.shareLocks, "void")
}

func TestCreate_NumberRollsBackWithEntry(t *testing.T) {
	f := newFixture()
	boom := errors.New("sequence unavailable")
	f.seq.NextFunc = func(context.Context, numerator.Key) (int64, error) { return 0, boom }

	_, err := f.svc.Create(context.Background(), f.company, CreateInput{Date: day("2024-03-10"), Lines: balanced("1")})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.repo.entries)
}

func TestPost(t *testing.T) {
	f := newFixture()
	e := f.create(t, "100")
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1"})

	posted, err := f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "u-1", *posted.PostedBy)
	assert.Equal(t, 2, posted.Version)

	_, err = f.svc.Post(ctx, f.company, e.ID)
	assert.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "already posted")
}

func TestUpdate_OnlyDrafts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, "100")

	desc := "corrected"
	updated, err := f.svc.Update(ctx, f.company, e.ID, UpdateInput{
		Description: &desc,
		Lines:       balanced("250"),
	})
	require.NoError(t, err)
	assert.Equal(t, "corrected", updated.Description)
	assert.True(t, updated.Totals().Debit.Equal(m("250")))

	stored, err := f.svc.GetByID(ctx, f.company, e.ID)
	require.NoError(t, err)
	assert.True(t, stored.Totals().Credit.Equal(m("250")))

	_, err = f.svc.Update(ctx, f.company, e.ID, UpdateInput{Lines: []LineInput{
		{AccountCode: "572", Debit: m("1")},
		{AccountCode: "100", Credit: m("2")},
	}})
	assert.True(t, apperror.IsValidation(err))

	outside := day("2025-01-02")
	_, err = f.svc.Update(ctx, f.company, e.ID, UpdateInput{Date: &outside})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.company, e.ID, UpdateInput{Description: &desc})
	assert.True(t, apperror.IsConflict(err))
}

func TestVoid_DraftWithoutReversal(t *testing.T) {
	f := newFixture()
	e := f.create(t, "100")

	res, err := f.svc.Void(context.Background(), f.company, e.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusReversed, res.Entry.Status)
	assert.Nil(t, res.Reversal)
	assert.Len(t, f.repo.entries, 1)

	_, err = f.svc.Post(context.Background(), f.company, e.ID)
	assert.True(t, apperror.IsConflict(err), "REVERSED is terminal")
}

func TestVoid_PostedCreatesMirroredReversal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e, err := f.svc.Create(ctx, f.company, CreateInput{
		Date: day("2024-03-10"), Description: "sale", Reference: "INV-7",
		Lines: []LineInput{
			{AccountCode: "572", Debit: m("60000"), Description: "proceeds"},
			{AccountCode: "250", Credit: m("35000"), Description: "cost"},
			{AccountCode: "766", Credit: m("25000"), Description: "gain"},
		},
	})
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)

	res, err := f.svc.Void(ctx, f.company, e.ID)
	require.NoError(t, err)

	rev := res.Reversal
	require.NotNil(t, rev)
	assert.Equal(t, StatusReversed, res.Entry.Status)
	require.NotNil(t, res.Entry.ReversedBy)
	assert.Equal(t, rev.ID, *res.Entry.ReversedBy)

	assert.Equal(t, StatusPosted, rev.Status)
	assert.True(t, rev.IsReversal)
	require.NotNil(t, rev.ReversalOf)
	assert.Equal(t, e.ID, *rev.ReversalOf)
	assert.Equal(t, int64(2), rev.Number)
	assert.Equal(t, "Reversal of #1: sale", rev.Description)
	assert.Equal(t, "INV-7", rev.Reference)
	assert.Equal(t, day("2024-06-15"), rev.Date)

	require.Len(t, rev.Lines, 3)
	for i, l := range rev.Lines {
		orig := e.Lines[i]
		assert.True(t, l.Debit.Equal(orig.Credit))
		assert.True(t, l.Credit.Equal(orig.Debit))
		assert.Equal(t, orig.AccountID, l.AccountID)
		assert.Equal(t, "Reversal: "+orig.Description, l.Description)
	}

	net := SumLines(append(append([]Line(nil), e.Lines...), rev.Lines...))
	assert.True(t, net.Debit.Equal(net.Credit))

	_, err = f.svc.Void(ctx, f.company, e.ID)
	assert.True(t, apperror.IsConflict(err))
}

func TestVoid_ReversalDateClampedToFiscalYear(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, "10")
	_, err := f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return day("2025-02-01") }
	res, err := f.svc.Void(ctx, f.company, e.ID)
	require.NoError(t, err)

	assert.Equal(t, day("2024-12-31"), res.Reversal.Date)
}

func TestVoid_ClosedFiscalYear(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, "10")
	_, err := f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)
	require.NoError(t, f.fy.Close(time.Now()))

	_, err = f.svc.Void(ctx, f.company, e.ID)

	assert.True(t, apperror.IsValidation(err))
	stored, _ := f.svc.GetByID(ctx, f.company, e.ID)
	assert.Equal(t, StatusPosted, stored.Status)
}

func TestVoid_IsAtomic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := f.create(t, "10")
	_, err := f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)

	boom := errors.New("write failed")
	f.repo.failUpdate = boom
	_, err = f.svc.Void(ctx, f.company, e.ID)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.repo.entries, 1, "reversal rolled back")
	stored, _ := f.svc.GetByID(ctx, f.company, e.ID)
	assert.Equal(t, StatusPosted, stored.Status)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft := f.create(t, "10")
	posted := f.create(t, "20")
	_, err := f.svc.Post(ctx, f.company, posted.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.company, posted.ID)
	assert.True(t, apperror.IsConflict(err))

	require.NoError(t, f.svc.Delete(ctx, f.company, draft.ID))
	_, err = f.svc.GetByID(ctx, f.company, draft.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestHooks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	var events []domain.HookEvent
	for _, ev := range []domain.HookEvent{domain.AfterCreate, domain.AfterPost, domain.AfterVoid} {
		ev := ev
		f.svc.Hooks().On(ev, func(context.Context, *Entry) error {
			events = append(events, ev)
			return nil
		})
	}
	f.svc.Hooks().On(domain.BeforeCreate, func(_ context.Context, e *Entry) error {
		if e.Description == "forbidden" {
			return apperror.NewValidation("forbidden")
		}
		return nil
	})

	e := f.create(t, "10")
	_, err := f.svc.Post(ctx, f.company, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Void(ctx, f.company, e.ID)
	require.NoError(t, err)

	assert.Equal(t, []domain.HookEvent{domain.AfterCreate, domain.AfterPost, domain.AfterVoid}, events)

	_, err = f.svc.Create(ctx, f.company, CreateInput{Date: day("2024-03-10"), Description: "forbidden", Lines: balanced("1")})
	assert.True(t, apperror.IsValidation(err))
}

func TestList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.create(t, "10")
	}
	draft := StatusDraft

	res, err := f.svc.List(ctx, f.company, ListFilter{Status: &draft, Page: domain.Page{Limit: 2}})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.TotalCount)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(3), res.Items[0].Number)
}

func TestFiscalClose_CountsDrafts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fyRepo := &fiscalRepo{years: f.years}
	fiscalSvc := fiscal.NewService(fyRepo, f.repo, nil)

	for i := 0; i < 3; i++ {
		f.create(t, "10")
	}
	_, err := fiscalSvc.Close(ctx, f.company, f.fy.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "with 3 draft journal entries")

	res, err := f.svc.List(ctx, f.company, ListFilter{})
	require.NoError(t, err)
	for i, e := range res.Items {
		if i == 0 {
			_, err = f.svc.Void(ctx, f.company, e.ID)
		} else {
			_, err = f.svc.Post(ctx, f.company, e.ID)
		}
		require.NoError(t, err)
	}

	closed, err := fiscalSvc.Close(ctx, f.company, f.fy.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)

	stats, err := fiscalSvc.Stats(ctx, f.company, f.fy.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Posted)
	assert.Equal(t, int64(1), stats.Reversed)
	assert.True(t, stats.IsBalanced)
}

// fiscalRepo adapts yearsFake to fiscal.Repository for the close flow.
type fiscalRepo struct {
	fiscal.Repository
	years *yearsFake
}

func (r *fiscalRepo) GetByID(ctx context.Context, companyID, fyID id.ID) (*fiscal.FiscalYear, error) {
	fy, err := r.years.GetByID(ctx, companyID, fyID)
	if err != nil {
		return nil, err
	}
	cp := *fy
	return &cp, nil
}

func (r *fiscalRepo) GetForUpdate(ctx context.Context, companyID, fyID id.ID) (*fiscal.FiscalYear, error) {
	return r.GetByID(ctx, companyID, fyID)
}

func (r *fiscalRepo) Update(_ context.Context, fy *fiscal.FiscalYear) error {
	cp := *fy
	r.years.years[fy.ID] = &cp
	return nil
}
