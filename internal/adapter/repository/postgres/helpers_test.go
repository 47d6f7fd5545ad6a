package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/usecase"
)

var fixedTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

// insertArgs pins the leading statement arguments and accepts anything for
// the remaining ones up to n.
func insertArgs(n int, leading ...any) []any {
	args := make([]any, n)
	copy(args, leading)
	for i := len(leading); i < n; i++ {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func beginMockTx(t *testing.T, mock pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	mock.ExpectBegin()
	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func num(s string) pgtype.Numeric {
	return decimalToNumeric(decimal.RequireFromString(s))
}

func ts(t time.Time) pgtype.Timestamptz {
	return timeToPgTimestamptz(t)
}

func day(y int, m time.Month, d int) pgtype.Date {
	return dateToPgDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
