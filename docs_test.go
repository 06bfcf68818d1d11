package shelf_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/store/memory"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		owner := shelf.NewAccountID()
		l := shelf.New(memory.New(), owner,
			shelf.WithLogger(slog.New(slog.DiscardHandler)),
			shelf.WithSnapshotInterval(100),
			shelf.WithPluginTimeout(2*time.Second),
		)
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer func() { _ = l.Stop() }()

		book := shelf.NewItemID()
		if _, err := l.AddItem(ctx, owner, book, "Dune", "Frank Herbert", shelf.NewAmount(100), 5); err != nil {
			t.Fatal(err)
		}

		buyer := shelf.NewAccountID()
		if _, err := l.AddFunds(ctx, buyer, buyer, shelf.NewAmount(500)); err != nil {
			t.Fatal(err)
		}

		rec, err := l.Purchase(ctx, buyer, book, 3)
		if err != nil {
			t.Fatal(err)
		}

		purchased, ok := rec.Event.(event.ItemPurchased)
		if !ok {
			t.Fatalf("Purchase returned %T", rec.Event)
		}
		log.Printf("Purchased %d for %s\n", purchased.Quantity, purchased.TotalCost)

		if got := l.GetBalance(buyer); !got.Equal(shelf.NewAmount(200)) {
			t.Errorf("balance = %s, want 200", got)
		}
	})

	// Test Amount examples
	t.Run("AmountExamples", func(t *testing.T) {
		price := shelf.MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
		if !price.Equal(shelf.MaxAmount()) {
			t.Errorf("parsed %s, want max", price)
		}

		if _, overflow := price.Add(shelf.NewAmount(1)); !overflow {
			t.Error("max + 1 should overflow")
		}

		total, overflow := shelf.Sum(shelf.NewAmount(100), shelf.NewAmount(200))
		if overflow || !total.Equal(shelf.NewAmount(300)) {
			t.Errorf("Sum = %s, %v", total, overflow)
		}

		if _, err := shelf.ParseAmount("-1"); err == nil {
			t.Error("negative amounts should not parse")
		}
	})

	// Test TypeID examples
	t.Run("TypeIDExamples", func(t *testing.T) {
		itemID := shelf.NewItemID()
		parsed, err := shelf.ParseItemID(itemID.String())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != itemID {
			t.Errorf("ParseItemID = %s, want %s", parsed, itemID)
		}

		if _, err := shelf.ParseAccountID(itemID.String()); err == nil {
			t.Error("item ID should not parse as an account ID")
		}
	})

	// Test error helpers
	t.Run("ErrorExamples", func(t *testing.T) {
		ctx := context.Background()
		l := shelf.New(memory.New(), shelf.NewAccountID(), shelf.WithLogger(slog.New(slog.DiscardHandler)))
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer func() { _ = l.Stop() }()

		_, err := l.Purchase(ctx, shelf.NewAccountID(), shelf.NewItemID(), 1)
		if !shelf.IsNotFound(err) {
			t.Errorf("IsNotFound(%v) = false", err)
		}
		if !shelf.IsRejection(err) {
			t.Errorf("IsRejection(%v) = false", err)
		}
		if shelf.IsRetryable(err) {
			t.Errorf("IsRetryable(%v) = true", err)
		}
	})
}
