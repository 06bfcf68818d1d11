// Package item defines the inventory entry held by the ledger.
package item

import (
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/types"
)

// Item is an inventory entry. An Item value only exists for present
// entries; absence is represented by the ledger not holding one at all.
type Item struct {
	types.Entity
	ID     id.ItemID    `json:"id"`
	Title  string       `json:"title"`
	Author string       `json:"author"`
	Price  types.Amount `json:"price"`
	Stock  uint32       `json:"stock"`
}

// ListOpts pages through present items, ordered by ID.
type ListOpts struct {
	Limit  int
	Offset int
}
