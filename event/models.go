// Package event defines the records the ledger produces for every accepted
// mutation. Events are plain values returned by the ledger's decision
// functions; the journal (see Store) is the append-only log of them.
package event

import (
	"time"

	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/types"
)

// Kind names an event variant.
type Kind string

const (
	KindItemAdded     Kind = "item.added"
	KindItemUpdated   Kind = "item.updated"
	KindItemRemoved   Kind = "item.removed"
	KindFundsAdded    Kind = "funds.added"
	KindItemPurchased Kind = "item.purchased"
)

// Kinds lists every known event kind.
func Kinds() []Kind {
	return []Kind{
		KindItemAdded,
		KindItemUpdated,
		KindItemRemoved,
		KindFundsAdded,
		KindItemPurchased,
	}
}

// Event is the tagged union of ledger events. The set of implementations
// is closed to this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// ItemAdded is produced when the owner adds (or replaces) an item.
type ItemAdded struct {
	ItemID id.ItemID    `json:"item_id"`
	Title  string       `json:"title"`
	Author string       `json:"author"`
	Price  types.Amount `json:"price"`
	Stock  uint32       `json:"stock"`
}

// ItemUpdated is produced when the owner changes an item's price and stock.
type ItemUpdated struct {
	ItemID   id.ItemID    `json:"item_id"`
	NewPrice types.Amount `json:"new_price"`
	NewStock uint32       `json:"new_stock"`
}

// ItemRemoved is produced when the owner removes an item.
type ItemRemoved struct {
	ItemID id.ItemID `json:"item_id"`
}

// FundsAdded is produced when an account is credited.
type FundsAdded struct {
	Account id.AccountID `json:"account"`
	Amount  types.Amount `json:"amount"`
}

// ItemPurchased is produced when a buyer's purchase commits.
type ItemPurchased struct {
	Buyer     id.AccountID `json:"buyer"`
	ItemID    id.ItemID    `json:"item_id"`
	Quantity  uint32       `json:"quantity"`
	TotalCost types.Amount `json:"total_cost"`
}

func (ItemAdded) Kind() Kind     { return KindItemAdded }
func (ItemUpdated) Kind() Kind   { return KindItemUpdated }
func (ItemRemoved) Kind() Kind   { return KindItemRemoved }
func (FundsAdded) Kind() Kind    { return KindFundsAdded }
func (ItemPurchased) Kind() Kind { return KindItemPurchased }

func (ItemAdded) isEvent()     {}
func (ItemUpdated) isEvent()   {}
func (ItemRemoved) isEvent()   {}
func (FundsAdded) isEvent()    {}
func (ItemPurchased) isEvent() {}

// Record is one journal entry: a committed event with its position.
// Sequence numbers start at 1 and have no gaps.
type Record struct {
	ID         id.EventID   `json:"id"`
	Sequence   uint64       `json:"sequence"`
	Caller     id.AccountID `json:"caller"`
	Event      Event        `json:"-"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Kind returns the kind of the wrapped event.
func (r *Record) Kind() Kind {
	if r.Event == nil {
		return ""
	}
	return r.Event.Kind()
}

// ListOpts filters journal queries.
type ListOpts struct {
	// AfterSequence returns only records with a greater sequence.
	AfterSequence uint64
	// Kind restricts results to one event kind when set.
	Kind Kind
	// Limit caps the number of records returned; zero means no cap.
	Limit int
}
