package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

const bankTransactionColumns = `id, account_id, type, txn_date, reference, description, amount,
	source, match_status, state, exclusion_reason, created_at, updated_at`

const createBankTransaction = `INSERT INTO bank_transactions (` + bankTransactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const getBankTransactionByID = `SELECT ` + bankTransactionColumns + `
FROM bank_transactions WHERE id = $1`

const getBankTransactionByIDForUpdate = getBankTransactionByID + ` FOR UPDATE`

const updateBankTransaction = `UPDATE bank_transactions
SET match_status = $2, state = $3, exclusion_reason = $4, updated_at = $5
WHERE id = $1`

const sumPostedBankTransactions = `SELECT COALESCE(SUM(amount), 0)
FROM bank_transactions
WHERE account_id = $1 AND state = 'posted' AND match_status <> 'excluded' AND txn_date <= $2`

// BankTransactionRepository implements usecase.BankTransactionRepository.
type BankTransactionRepository struct {
	db DBTX
}

// NewBankTransactionRepository creates a new BankTransactionRepository.
func NewBankTransactionRepository(db DBTX) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// Create inserts a new bank transaction.
func (r *BankTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.BankTransaction) error {
	_, err := pgxTx(tx).Exec(ctx, createBankTransaction,
		txn.ID,
		txn.AccountID,
		string(txn.Type),
		dateToPgDate(txn.Date),
		txn.Reference,
		txn.Description,
		decimalToNumeric(txn.Amount),
		string(txn.Source),
		string(txn.MatchStatus),
		string(txn.State),
		txn.ExclusionReason,
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)
	return translateError(err, nil)
}

// GetByID retrieves a transaction by ID, including deleted ones.
func (r *BankTransactionRepository) GetByID(ctx context.Context, id string) (*domain.BankTransaction, error) {
	txn, err := scanBankTransaction(r.db.QueryRow(ctx, getBankTransactionByID, id))
	if err != nil {
		return nil, translateError(err, domain.ErrTransactionNotFound)
	}
	return txn, nil
}

// GetByIDForUpdate retrieves a transaction by ID with a FOR UPDATE lock.
func (r *BankTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankTransaction, error) {
	txn, err := scanBankTransaction(pgxTx(tx).QueryRow(ctx, getBankTransactionByIDForUpdate, id))
	if err != nil {
		return nil, translateError(err, domain.ErrTransactionNotFound)
	}
	return txn, nil
}

// List returns posted transactions matching filter in ascending ID order.
func (r *BankTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error) {
	query, args := buildTransactionListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, nil)
	}

	txns, err := collect(rows, scanBankTransaction)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return txns, nil
}

func buildTransactionListQuery(filter domain.TransactionFilter) (string, []any) {
	var (
		conds = []string{"state = 'posted'"}
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.AccountID != "" {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.MatchStatus != nil {
		add("match_status = $%d", string(*filter.MatchStatus))
	}
	if filter.From != nil {
		add("txn_date >= $%d", dateToPgDate(*filter.From))
	}
	if filter.To != nil {
		add("txn_date <= $%d", dateToPgDate(*filter.To))
	}

	query := `SELECT ` + bankTransactionColumns + `
FROM bank_transactions
WHERE ` + strings.Join(conds, " AND ") + `
ORDER BY id`
	return query, args
}

// Update persists match status, state and exclusion reason.
func (r *BankTransactionRepository) Update(ctx context.Context, tx usecase.Transaction, txn *domain.BankTransaction) error {
	tag, err := pgxTx(tx).Exec(ctx, updateBankTransaction,
		txn.ID,
		string(txn.MatchStatus),
		string(txn.State),
		txn.ExclusionReason,
		timeToPgTimestamptz(txn.UpdatedAt),
	)
	if err != nil {
		return translateError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// SumPosted totals the amounts counting toward the balance dated on or
// before through.
func (r *BankTransactionRepository) SumPosted(ctx context.Context, accountID string, through time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	if err := r.db.QueryRow(ctx, sumPostedBankTransactions, accountID, dateToPgDate(through)).Scan(&sum); err != nil {
		return decimal.Zero, translateError(err, nil)
	}
	return numericToDecimal(sum), nil
}

func scanBankTransaction(row rowScanner) (*domain.BankTransaction, error) {
	var (
		t                              domain.BankTransaction
		txnType, source, status, state string
		date                           pgtype.Date
		amount                         pgtype.Numeric
		created, updated               pgtype.Timestamptz
	)
	if err := row.Scan(
		&t.ID,
		&t.AccountID,
		&txnType,
		&date,
		&t.Reference,
		&t.Description,
		&amount,
		&source,
		&status,
		&state,
		&t.ExclusionReason,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	t.Type = domain.TransactionType(txnType)
	t.Date = pgDateToTime(date)
	t.Amount = numericToDecimal(amount)
	t.Source = domain.TransactionSource(source)
	t.MatchStatus = domain.MatchStatus(status)
	t.State = domain.TransactionState(state)
	t.CreatedAt = created.Time
	t.UpdatedAt = updated.Time
	return &t, nil
}
