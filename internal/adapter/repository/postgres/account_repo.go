package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

const bankAccountColumns = `id, bank_name, account_number, account_name, currency,
	opening_balance, current_balance, status, channel_short_code, created_at, updated_at`

const createBankAccount = `INSERT INTO bank_accounts (` + bankAccountColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const getBankAccountByID = `SELECT ` + bankAccountColumns + `
FROM bank_accounts WHERE id = $1`

const getBankAccountByIDForUpdate = getBankAccountByID + ` FOR UPDATE`

const listBankAccounts = `SELECT ` + bankAccountColumns + `
FROM bank_accounts ORDER BY id LIMIT $1 OFFSET $2`

const adjustBankAccountBalance = `UPDATE bank_accounts
SET current_balance = current_balance + $2, updated_at = $3
WHERE id = $1`

const updateBankAccountStatus = `UPDATE bank_accounts SET status = $2, updated_at = $3 WHERE id = $1`

const updateBankAccountChannel = `UPDATE bank_accounts SET channel_short_code = $2, updated_at = $3 WHERE id = $1`

// BankAccountRepository implements usecase.BankAccountRepository.
type BankAccountRepository struct {
	db DBTX
}

// NewBankAccountRepository creates a new BankAccountRepository.
func NewBankAccountRepository(db DBTX) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

// Create inserts a new account.
func (r *BankAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.BankAccount) error {
	_, err := pgxTx(tx).Exec(ctx, createBankAccount,
		account.ID,
		account.BankName,
		account.AccountNumber,
		account.AccountName,
		account.Currency,
		decimalToNumeric(account.OpeningBalance),
		decimalToNumeric(account.CurrentBalance),
		string(account.Status),
		account.ChannelShortCode,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)
	return translateError(err, nil)
}

// GetByID retrieves an account by ID.
func (r *BankAccountRepository) GetByID(ctx context.Context, id string) (*domain.BankAccount, error) {
	account, err := scanBankAccount(r.db.QueryRow(ctx, getBankAccountByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrAccountNotFound)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *BankAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankAccount, error) {
	account, err := scanBankAccount(pgxTx(tx).QueryRow(ctx, getBankAccountByIDForUpdate, id))
	if err != nil {
		return nil, translateError(err, domain.ErrAccountNotFound)
	}
	return account, nil
}

// List returns accounts ordered by ID.
func (r *BankAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.BankAccount, error) {
	rows, err := r.db.Query(ctx, listBankAccounts, int32(limit), int32(offset))
	if err != nil {
		return nil, translateError(err, nil)
	}

	accounts, err := collect(rows, scanBankAccount)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return accounts, nil
}

// AdjustBalance adds delta to the current balance.
func (r *BankAccountRepository) AdjustBalance(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
	return r.execOne(ctx, tx, adjustBankAccountBalance, id, decimalToNumeric(delta), timeToPgTimestamptz(updatedAt))
}

// UpdateStatus sets the account status.
func (r *BankAccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error {
	return r.execOne(ctx, tx, updateBankAccountStatus, id, string(status), timeToPgTimestamptz(updatedAt))
}

// UpdateChannel sets the external channel short code.
func (r *BankAccountRepository) UpdateChannel(ctx context.Context, tx usecase.Transaction, id, shortCode string, updatedAt time.Time) error {
	return r.execOne(ctx, tx, updateBankAccountChannel, id, shortCode, timeToPgTimestamptz(updatedAt))
}

func (r *BankAccountRepository) execOne(ctx context.Context, tx usecase.Transaction, query string, args ...any) error {
	tag, err := pgxTx(tx).Exec(ctx, query, args...)
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanBankAccount(row rowScanner) (*domain.BankAccount, error) {
	var (
		a                domain.BankAccount
		status           string
		opening, current pgtype.Numeric
		created, updated pgtype.Timestamptz
	)
	if err := row.Scan(
		&a.ID,
		&a.BankName,
		&a.AccountNumber,
		&a.AccountName,
		&a.Currency,
		&opening,
		&current,
		&status,
		&a.ChannelShortCode,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	a.OpeningBalance = numericToDecimal(opening)
	a.CurrentBalance = numericToDecimal(current)
	a.Status = domain.AccountStatus(status)
	a.CreatedAt = created.Time
	a.UpdatedAt = updated.Time
	return &a, nil
}
