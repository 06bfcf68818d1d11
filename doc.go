// Package shelf provides a single-owner inventory and prepaid-balance
// ledger for Go applications.
//
// Shelf is designed as a library, not a service. A Ledger holds a set of
// items (title, author, price, stock) administered by one owner identity,
// and a balance per account. Buyers purchase items against their balance;
// a purchase either debits the balance and decrements stock together, or
// changes nothing.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/shelf"
//	    "github.com/xraph/shelf/store/memory"
//	)
//
//	owner := shelf.NewAccountID()
//	st := memory.New()
//	defer st.Close()
//
//	l := shelf.New(st, owner)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	book := shelf.NewItemID()
//	_, err := l.AddItem(ctx, owner, book, "Dune", "Frank Herbert", shelf.NewAmount(100), 5)
//
//	buyer := shelf.NewAccountID()
//	_, err = l.AddFunds(ctx, buyer, buyer, shelf.NewAmount(500))
//	rec, err := l.Purchase(ctx, buyer, book, 3)
//
// # Journal
//
// Every accepted mutation is appended to the store as an event.Record
// before it is applied in memory, and the record is returned to the
// caller. Start rebuilds state from the latest snapshot plus the records
// after it. Rejected operations append nothing.
//
// # Amounts
//
// Prices and balances are unsigned 256-bit integers (types.Amount) in the
// smallest currency unit. Arithmetic is checked: overflow is reported as
// ErrOverflow, never wrapped.
//
// # TypeID
//
// Items, accounts, records and snapshots use TypeIDs:
//
//	item_01h2xcejqtf2nbrexx3vqjhp41  // Item ID
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account ID
//	evt_01h455vb4pex5vsknk084sn02q   // Record ID
package shelf
