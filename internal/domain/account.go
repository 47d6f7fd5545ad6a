package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of a bank account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

// BankAccount is a bank account whose statement lines get reconciled.
type BankAccount struct {
	ID               string
	BankName         string
	AccountNumber    string
	AccountName      string
	Currency         string
	OpeningBalance   decimal.Decimal
	CurrentBalance   decimal.Decimal
	Status           AccountStatus
	ChannelShortCode string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsClosed reports whether the account no longer accepts transaction changes.
func (a *BankAccount) IsClosed() bool {
	return a.Status == AccountStatusClosed
}

// EnsureWritable fails when the account has been closed.
func (a *BankAccount) EnsureWritable() error {
	if a.IsClosed() {
		return ErrAccountClosed
	}
	return nil
}

// ApplyEffect returns the balance after adding a signed transaction amount.
func (a *BankAccount) ApplyEffect(delta decimal.Decimal) decimal.Decimal {
	return a.CurrentBalance.Add(delta)
}
