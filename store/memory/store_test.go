package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
	"github.com/xraph/shelf/snapshot"
	"github.com/xraph/shelf/store/memory"
	"github.com/xraph/shelf/types"
)

func rec(seq uint64, e event.Event) *event.Record {
	return &event.Record{
		ID:         id.NewEventID(),
		Sequence:   seq,
		Caller:     id.NewAccountID(),
		Event:      e,
		OccurredAt: time.Now().UTC(),
	}
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()

	ctx := context.Background()
	s := memory.New()
	book := id.NewItemID()
	buyer := id.NewAccountID()
	records := []*event.Record{
		rec(1, event.ItemAdded{ItemID: book, Title: "T", Price: types.NewAmount(5), Stock: 3}),
		rec(2, event.FundsAdded{Account: buyer, Amount: types.NewAmount(50)}),
		rec(3, event.ItemPurchased{Buyer: buyer, ItemID: book, Quantity: 1, TotalCost: types.NewAmount(5)}),
		rec(4, event.FundsAdded{Account: buyer, Amount: types.NewAmount(10)}),
	}
	for _, r := range records {
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append(%d): %v", r.Sequence, err)
		}
	}
	return s
}

func TestAppendRejectsStaleSequence(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	for _, seq := range []uint64{1, 4} {
		err := s.Append(ctx, rec(seq, event.ItemRemoved{ItemID: id.NewItemID()}))
		if !errors.Is(err, shelf.ErrSequenceConflict) {
			t.Errorf("Append(%d): expected ErrSequenceConflict, got %v", seq, err)
		}
	}

	if err := s.Append(ctx, &event.Record{Sequence: 5}); err == nil {
		t.Error("expected error for nil event")
	}

	last, err := s.LastSequence(ctx)
	if err != nil {
		t.Fatalf("LastSequence: %v", err)
	}
	if last != 4 {
		t.Errorf("LastSequence = %d, want 4", last)
	}
}

func TestAppendCopiesRecord(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	r := rec(1, event.ItemRemoved{ItemID: id.NewItemID()})
	if err := s.Append(ctx, r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	r.Sequence = 99

	got, err := s.ListEvents(ctx, event.ListOpts{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].Sequence != 1 {
		t.Errorf("stored record changed by caller: %+v", got)
	}
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	tests := []struct {
		name string
		opts event.ListOpts
		want []uint64
	}{
		{"all", event.ListOpts{}, []uint64{1, 2, 3, 4}},
		{"after", event.ListOpts{AfterSequence: 2}, []uint64{3, 4}},
		{"kind", event.ListOpts{Kind: event.KindFundsAdded}, []uint64{2, 4}},
		{"limit", event.ListOpts{Limit: 3}, []uint64{1, 2, 3}},
		{"after and limit", event.ListOpts{AfterSequence: 1, Limit: 1}, []uint64{2}},
		{"after end", event.ListOpts{AfterSequence: 4}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEvents(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Sequence != tt.want[i] {
					t.Errorf("record %d: sequence %d, want %d", i, r.Sequence, tt.want[i])
				}
			}
		})
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	owner := id.NewAccountID()

	if _, err := s.LatestSnapshot(ctx); !shelf.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	first := &snapshot.Snapshot{ID: id.NewSnapshotID(), Sequence: 10, Owner: owner, TakenAt: time.Now()}
	second := &snapshot.Snapshot{
		ID:       id.NewSnapshotID(),
		Sequence: 20,
		Owner:    owner,
		Items:    []item.Item{{ID: id.NewItemID(), Title: "T", Stock: 1}},
		TakenAt:  time.Now(),
	}
	for _, snap := range []*snapshot.Snapshot{second, first} {
		if err := s.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	// Mutating the saved value must not reach the store.
	second.Items[0].Title = "changed"

	latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %s, want %s", latest.ID, second.ID)
	}
	if latest.Items[0].Title != "T" {
		t.Errorf("stored snapshot aliased caller slice: %q", latest.Items[0].Title)
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	checks := map[string]error{
		"Migrate":      s.Migrate(ctx),
		"Ping":         s.Ping(ctx),
		"Append":       s.Append(ctx, rec(5, event.ItemRemoved{ItemID: id.NewItemID()})),
		"SaveSnapshot": s.SaveSnapshot(ctx, &snapshot.Snapshot{ID: id.NewSnapshotID()}),
	}
	_, checks["ListEvents"] = s.ListEvents(ctx, event.ListOpts{})
	_, checks["LastSequence"] = s.LastSequence(ctx)
	_, checks["LatestSnapshot"] = s.LatestSnapshot(ctx)

	for name, err := range checks {
		if !errors.Is(err, shelf.ErrStoreClosed) {
			t.Errorf("%s: expected ErrStoreClosed, got %v", name, err)
		}
	}
}
