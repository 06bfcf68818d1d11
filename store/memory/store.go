// Package memory provides an in-process store for tests and single-process
// deployments. Nothing survives the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/snapshot"
	"github.com/xraph/shelf/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Journal, ordered by sequence
	records []*event.Record

	// Snapshot history, ordered by sequence
	snapshots []*snapshot.Snapshot

	closed bool
}

func New() *Store {
	return &Store{
		records:   make([]*event.Record, 0),
		snapshots: make([]*snapshot.Snapshot, 0),
	}
}

// Event Store implementation
func (s *Store) Append(_ context.Context, rec *event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shelf.ErrStoreClosed
	}
	if rec.Event == nil {
		return fmt.Errorf("memory: append record %d: nil event", rec.Sequence)
	}

	var last uint64
	if n := len(s.records); n > 0 {
		last = s.records[n-1].Sequence
	}
	if rec.Sequence <= last {
		return fmt.Errorf("%w: sequence %d already appended", shelf.ErrSequenceConflict, rec.Sequence)
	}

	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, shelf.ErrStoreClosed
	}

	var result []*event.Record
	for _, rec := range s.records {
		if rec.Sequence <= opts.AfterSequence {
			continue
		}
		if opts.Kind != "" && rec.Kind() != opts.Kind {
			continue
		}
		cp := *rec
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, shelf.ErrStoreClosed
	}
	if n := len(s.records); n > 0 {
		return s.records[n-1].Sequence, nil
	}
	return 0, nil
}

// Snapshot Store implementation
func (s *Store) SaveSnapshot(_ context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shelf.ErrStoreClosed
	}
	s.snapshots = append(s.snapshots, cloneSnapshot(snap))
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, shelf.ErrStoreClosed
	}

	var latest *snapshot.Snapshot
	for _, snap := range s.snapshots {
		if latest == nil || snap.Sequence >= latest.Sequence {
			latest = snap
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no snapshot", shelf.ErrNotFound)
	}
	return cloneSnapshot(latest), nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shelf.ErrStoreClosed
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return shelf.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func cloneSnapshot(snap *snapshot.Snapshot) *snapshot.Snapshot {
	cp := *snap
	cp.Items = append(cp.Items[:0:0], snap.Items...)
	cp.Accounts = append(cp.Accounts[:0:0], snap.Accounts...)
	return &cp
}
