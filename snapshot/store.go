package snapshot

import "context"

// Store persists snapshots. Only the latest one is needed to start.
type Store interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	// LatestSnapshot returns the snapshot with the highest sequence, or an
	// error matching shelf.ErrNotFound when none has been saved.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
}
