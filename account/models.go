// Package account defines the prepaid balance held for a caller identity.
package account

import (
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/types"
)

// Account holds a balance. Accounts come into existence on their first
// credit; an identity without one has an implicit zero balance.
type Account struct {
	types.Entity
	ID      id.AccountID `json:"id"`
	Balance types.Amount `json:"balance"`
}
