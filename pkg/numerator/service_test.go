package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	corenum "github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences table keyed by (company, fiscal year).
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}
	if m.values == nil {
		m.values = make(map[string]int64)
	}

	key := args[0].(id.ID).String() + "/" + args[1].(id.ID).String()
	if len(args) == 3 && strings.Contains(sql, "current_val = $3") {
		m.values[key] = args[2].(int64)
	} else {
		m.values[key]++
	}
	return &mockRow{val: m.values[key]}
}

func TestNext_SequentialPerKey(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	k1 := corenum.Key{CompanyID: id.New(), FiscalYearID: id.New()}
	k2 := corenum.Key{CompanyID: k1.CompanyID, FiscalYearID: id.New()}

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Next(ctx, k1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	got, err := svc.Next(ctx, k2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("other fiscal year should start at 1, got %d", got)
	}
}

func TestNext_RequiresScope(t *testing.T) {
	svc := New(&mockQuerier{})
	if _, err := svc.Next(context.Background(), corenum.Key{CompanyID: id.New()}); err == nil {
		t.Fatal("expected error for missing fiscal year")
	}
}

func TestNext_PropagatesDatabaseError(t *testing.T) {
	svc := New(&mockQuerier{err: errors.New("connection reset")})
	_, err := svc.Next(context.Background(), corenum.Key{CompanyID: id.New(), FiscalYearID: id.New()})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped database error, got %v", err)
	}
}

func TestReset_ContinuesFromValue(t *testing.T) {
	q := &mockQuerier{}
	svc := NewFromProvider(func(context.Context) Querier { return q })
	ctx := context.Background()
	key := corenum.Key{CompanyID: id.New(), FiscalYearID: id.New()}

	if err := svc.Reset(ctx, key, 41); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.Next(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	if err := svc.Reset(ctx, key, -1); err == nil {
		t.Error("expected error for negative reset")
	}
}
