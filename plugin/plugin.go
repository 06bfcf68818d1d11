// Package plugin provides an extensible plugin system for the shelf ledger.
// Plugins hook into lifecycle events and committed journal records.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once the ledger has replayed its journal.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnItemAdded is called after an item is added or replaced.
type OnItemAdded interface {
	Plugin
	OnItemAdded(ctx context.Context, rec *event.Record, e event.ItemAdded) error
}

// OnItemUpdated is called after an item's price and stock change.
type OnItemUpdated interface {
	Plugin
	OnItemUpdated(ctx context.Context, rec *event.Record, e event.ItemUpdated) error
}

// OnItemRemoved is called after an item is removed.
type OnItemRemoved interface {
	Plugin
	OnItemRemoved(ctx context.Context, rec *event.Record, e event.ItemRemoved) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnFundsAdded is called after an account is credited.
type OnFundsAdded interface {
	Plugin
	OnFundsAdded(ctx context.Context, rec *event.Record, e event.FundsAdded) error
}

// OnItemPurchased is called after a purchase commits.
type OnItemPurchased interface {
	Plugin
	OnItemPurchased(ctx context.Context, rec *event.Record, e event.ItemPurchased) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnEventCommitted is called for every committed record, whatever its kind.
type OnEventCommitted interface {
	Plugin
	OnEventCommitted(ctx context.Context, rec *event.Record) error
}

// OnOperationRejected is called when an operation fails before anything is
// committed. op is the operation name, such as "purchase".
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, caller id.AccountID, err error) error
}

// OnSnapshotTaken is called after a snapshot is saved.
type OnSnapshotTaken interface {
	Plugin
	OnSnapshotTaken(ctx context.Context, sequence uint64, elapsed time.Duration) error
}
