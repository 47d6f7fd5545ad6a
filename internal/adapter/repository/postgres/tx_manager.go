package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankrecon/internal/infrastructure/metrics"
	"github.com/iho/bankrecon/internal/usecase"
)

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool    pgxPool
	metrics *metrics.Metrics
}

// NewTxManager creates a new TxManager. metrics may be nil.
func NewTxManager(pool *pgxpool.Pool, m *metrics.Metrics) *TxManager {
	tm := newTxManagerWithPool(pool)
	tm.metrics = m
	return tm
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		m.countError("begin")
		return nil, translateError(err, nil)
	}

	return &Tx{tx: tx, manager: m}, nil
}

func (m *TxManager) countError(kind string) {
	if m.metrics != nil {
		m.metrics.DBErrors.WithLabelValues(kind).Inc()
	}
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx      pgx.Tx
	manager *TxManager
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		t.manager.countError("commit")
		return translateError(err, nil)
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction
// is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
