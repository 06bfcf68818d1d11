package shelf

import "github.com/xraph/shelf/id"

// ID is the primary identifier type for all shelf entities.
type ID = id.ID

// ItemID identifies an item.
type ItemID = id.ItemID

// AccountID identifies a caller and the account holding its balance.
type AccountID = id.AccountID

// Re-export ID constructors
var (
	NewItemID      = id.NewItemID
	NewAccountID   = id.NewAccountID
	ParseItemID    = id.ParseItemID
	ParseAccountID = id.ParseAccountID
)
