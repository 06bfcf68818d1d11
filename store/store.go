// Package store defines the persistence contract the ledger commits through.
package store

import (
	"context"

	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/snapshot"
)

// Store is the unified storage interface: an append-only journal of
// committed records plus saved snapshots of state.
type Store interface {
	event.Store
	snapshot.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
