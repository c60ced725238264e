// Package ledger holds the chart of accounts and the debit/credit sign
// convention every balance in the system is derived with.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/entity"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// AccountType classifies an account for sign convention and report placement.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Income    AccountType = "INCOME"
	Expense   AccountType = "EXPENSE"
)

// AccountTypes lists every type in balance-sheet then income-statement order.
var AccountTypes = []AccountType{Asset, Liability, Equity, Income, Expense}

// ParseAccountType accepts any casing.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", apperror.NewValidation("unknown account type").WithDetail("type", s)
	}
	return t, nil
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Income, Expense:
		return true
	}
	return false
}

// IsDebitNormal is true for ASSET and EXPENSE.
func (t AccountType) IsDebitNormal() bool {
	return t == Asset || t == Expense
}

// SignedBalance applies the sign convention to summed debit and credit totals:
// debit − credit for debit-normal types, credit − debit otherwise.
func SignedBalance(t AccountType, debit, credit types.Money) types.Money {
	if t.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Totals are raw debit and credit sums for one account.
type Totals struct {
	Debit  types.Money `db:"debit" json:"debit"`
	Credit types.Money `db:"credit" json:"credit"`
}

// Add accumulates another line or total.
func (t Totals) Add(debit, credit types.Money) Totals {
	return Totals{Debit: t.Debit.Add(debit), Credit: t.Credit.Add(credit)}
}

// IsZero is true when neither side has activity.
func (t Totals) IsZero() bool {
	return t.Debit.IsZero() && t.Credit.IsZero()
}

// Balance returns the signed balance for an account of type at.
func (t Totals) Balance(at AccountType) types.Money {
	return SignedBalance(at, t.Debit, t.Credit)
}

// Account is one node of a company's chart of accounts.
type Account struct {
	entity.BaseEntity
	CompanyID   id.ID       `db:"company_id" json:"companyId"`
	Code        string      `db:"code" json:"code"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description,omitempty"`
	Type        AccountType `db:"type" json:"type"`
	ParentCode  *string     `db:"parent_code" json:"parentCode,omitempty"`
	IsActive    bool        `db:"is_active" json:"isActive"`
	entity.Timestamps
}

// NewAccount creates an active account with a fresh id.
func NewAccount(companyID id.ID, code, name string, t AccountType) *Account {
	return &Account{
		BaseEntity: entity.NewBaseEntity(),
		CompanyID:  companyID,
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
		Type:       t,
		IsActive:   true,
		Timestamps: entity.NewTimestamps(),
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(_ context.Context) error {
	if id.IsNil(a.CompanyID) {
		return apperror.NewValidation("company is required")
	}
	if a.Code == "" {
		return apperror.NewValidation("account code is required")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required").WithDetail("code", a.Code)
	}
	if !a.Type.Valid() {
		return apperror.NewValidation("unknown account type").WithDetail("type", a.Type)
	}
	if a.ParentCode != nil && *a.ParentCode == a.Code {
		return apperror.NewValidation("account cannot be its own parent").WithDetail("code", a.Code)
	}
	return nil
}

// ParentCodeValue returns the parent code or "" for roots.
func (a *Account) ParentCodeValue() string {
	if a.ParentCode == nil {
		return ""
	}
	return *a.ParentCode
}

// Balance is an account's signed balance over a period.
type Balance struct {
	AccountID id.ID       `json:"accountId"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Debit     types.Money `json:"debit"`
	Credit    types.Money `json:"credit"`
	Balance   types.Money `json:"balance"`
}

// NewBalance derives a Balance from raw totals.
func NewBalance(a *Account, t Totals) Balance {
	return Balance{
		AccountID: a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      a.Type,
		Debit:     t.Debit,
		Credit:    t.Credit,
		Balance:   t.Balance(a.Type),
	}
}

// Period bounds a balance query. Nil bounds are open.
type Period struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether d falls inside the period (inclusive bounds).
func (p Period) Contains(d time.Time) bool {
	if p.From != nil && d.Before(*p.From) {
		return false
	}
	if p.To != nil && d.After(*p.To) {
		return false
	}
	return true
}
