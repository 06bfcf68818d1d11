package event

import "context"

// Store is the append-only journal of committed records.
type Store interface {
	// Append persists one record atomically. Appending a sequence that
	// already exists must fail without writing anything.
	Append(ctx context.Context, rec *Record) error
	// ListEvents returns records in ascending sequence order.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Record, error)
	// LastSequence returns the highest appended sequence, or 0.
	LastSequence(ctx context.Context) (uint64, error)
}
