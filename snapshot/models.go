// Package snapshot defines saved copies of ledger state used to shorten
// journal replay on start.
package snapshot

import (
	"time"

	"github.com/xraph/shelf/account"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
)

// Snapshot is the full ledger state after the record at Sequence applied.
type Snapshot struct {
	ID       id.SnapshotID     `json:"id"`
	Sequence uint64            `json:"sequence"`
	Owner    id.AccountID      `json:"owner"`
	Items    []item.Item       `json:"items"`
	Accounts []account.Account `json:"accounts"`
	TakenAt  time.Time         `json:"taken_at"`
}
