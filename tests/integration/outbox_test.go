package integration

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/infrastructure/eventpublisher"
	"github.com/iho/bankrecon/internal/usecase"
	"github.com/iho/bankrecon/tests/testutil"
)

func TestOutboxRelayToRedisStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := testDB.NewStack()
	account := stack.CreateTestAccount(t, ctx, "EUR", decimal.NewFromInt(10))

	if _, err := stack.Transactions.AddTransaction(ctx, usecase.AddTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Date:      periodStart,
		Reference: "SEPA-1",
		Amount:    decimal.NewFromInt(40),
	}); err != nil {
		t.Fatalf("failed to add transaction: %v", err)
	}

	history, err := stack.Outbox.GetByAggregate(ctx, domain.AggregateTypeAccount, account.ID, 10, 0)
	if err != nil {
		t.Fatalf("failed to read account events: %v", err)
	}
	if len(history) == 0 || history[0].EventType != domain.EventTypeAccountCreated {
		t.Fatalf("expected account.created first, got %+v", history)
	}

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: stack.Outbox,
		Publisher:  eventpublisher.NewRedisStreamPublisher(client, "recon.events", 0),
		Logger:     zerolog.Nop(),
		BatchSize:  10,
		Interval:   20 * time.Millisecond,
	})

	relayCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Start(relayCtx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		pending, err := stack.Outbox.GetUnpublished(ctx, 10)
		if err != nil {
			t.Fatalf("failed to read pending events: %v", err)
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay left %d events unpublished", len(pending))
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done

	entries, err := client.XRange(ctx, "recon.events", "-", "+").Result()
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 stream entries, got %d", len(entries))
	}
	if entries[0].Values["event_type"] != domain.EventTypeAccountCreated {
		t.Errorf("expected account.created first, got %v", entries[0].Values["event_type"])
	}
}
