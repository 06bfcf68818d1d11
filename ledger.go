package shelf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
	"github.com/xraph/shelf/plugin"
	"github.com/xraph/shelf/snapshot"
	"github.com/xraph/shelf/store"
	"github.com/xraph/shelf/types"
)

// TracerName is the instrumentation name of the default tracer.
const TracerName = "github.com/xraph/shelf"

// Defaults applied by New.
const (
	DefaultSnapshotInterval = 1000
	DefaultReplayPageSize   = 500
)

// Ledger is the inventory and balance engine. All state lives behind one
// RWMutex; every mutation is appended to the store before it is applied in
// memory, so the journal is always at least as new as the state.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   func() time.Time

	owner  id.AccountID
	policy policy

	// Configuration
	snapshotInterval int
	replayPageSize   int
	skipMigrate      bool

	mu            sync.RWMutex
	state         *State
	started       bool
	sinceSnapshot int
}

// New creates a Ledger administered by owner and persisted in s. Call
// Start before issuing mutations.
func New(s store.Store, owner id.AccountID, opts ...Option) *Ledger {
	l := &Ledger{
		store:            s,
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		tracer:           otel.Tracer(TracerName),
		clock:            time.Now,
		owner:            owner,
		snapshotInterval: DefaultSnapshotInterval,
		replayPageSize:   DefaultReplayPageSize,
		state:            NewState(owner),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start migrates the store and rebuilds state from the latest snapshot and
// the journal records after it. Calling Start on a started ledger is a no-op.
func (l *Ledger) Start(ctx context.Context) error {
	ctx, span := l.tracer.Start(ctx, "shelf.start")
	defer span.End()

	if err := l.start(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("shelf ledger started",
		"owner", l.owner.String(),
		"sequence", l.Sequence(),
		"snapshot_interval", l.snapshotInterval,
	)

	return nil
}

func (l *Ledger) start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil
	}

	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("shelf: migrate: %w", err)
		}
	}

	state, err := l.loadSnapshot(ctx)
	if err != nil {
		return err
	}

	replayed, err := l.replay(ctx, state)
	if err != nil {
		return err
	}

	last, err := l.store.LastSequence(ctx)
	if err != nil {
		return fmt.Errorf("shelf: read last sequence: %w", err)
	}
	if last != state.Sequence() {
		return fmt.Errorf("%w: state at sequence %d, journal at %d", ErrCorruptJournal, state.Sequence(), last)
	}

	l.state = state
	l.started = true

	l.logger.Debug("shelf journal replayed",
		"records", replayed,
		"sequence", state.Sequence(),
	)

	return nil
}

func (l *Ledger) loadSnapshot(ctx context.Context) (*State, error) {
	snap, err := l.store.LatestSnapshot(ctx)
	if errors.Is(err, ErrNotFound) {
		return NewState(l.owner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("shelf: load snapshot: %w", err)
	}

	state, err := restoreState(snap, l.owner)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("shelf snapshot restored",
		"snapshot_id", snap.ID.String(),
		"sequence", snap.Sequence,
	)

	return state, nil
}

// replay applies every journal record after the state's sequence, a page
// at a time.
func (l *Ledger) replay(ctx context.Context, state *State) (int, error) {
	var replayed int
	for {
		page, err := l.store.ListEvents(ctx, event.ListOpts{
			AfterSequence: state.Sequence(),
			Limit:         l.replayPageSize,
		})
		if err != nil {
			return replayed, fmt.Errorf("shelf: read journal: %w", err)
		}

		for _, rec := range page {
			if err := state.Apply(rec); err != nil {
				return replayed, err
			}
			replayed++
		}

		if len(page) < l.replayPageSize {
			return replayed, nil
		}
	}
}

// Stop shuts down the Ledger. The store stays open; whoever created it
// closes it. A stopped Ledger can be started again on the same store.
func (l *Ledger) Stop() error {
	l.mu.Lock()
	wasStarted := l.started
	l.started = false
	l.mu.Unlock()

	if wasStarted {
		l.plugins.EmitShutdown(context.Background())
		l.logger.Info("shelf ledger stopped", "sequence", l.Sequence())
	}

	return nil
}

// ──────────────────────────────────────────────────
// Inventory administration
// ──────────────────────────────────────────────────

// AddItem creates the item at itemID, or replaces it when present unless
// the ledger was built WithStrictAdd. Only the owner may add items.
func (l *Ledger) AddItem(ctx context.Context, caller id.AccountID, itemID id.ItemID, title, author string, price types.Amount, stock uint32) (*event.Record, error) {
	return l.commit(ctx, "add_item", caller,
		[]attribute.KeyValue{
			attribute.String("shelf.item_id", itemID.String()),
			attribute.String("shelf.price", price.String()),
			attribute.Int64("shelf.stock", int64(stock)),
		},
		func(s *State) (event.Event, error) {
			return s.decideAddItem(l.policy, caller, itemID, title, author, price, stock)
		})
}

// UpdateItem replaces the price and stock of a present item, keeping its
// title and author. Only the owner may update items.
func (l *Ledger) UpdateItem(ctx context.Context, caller id.AccountID, itemID id.ItemID, newPrice types.Amount, newStock uint32) (*event.Record, error) {
	return l.commit(ctx, "update_item", caller,
		[]attribute.KeyValue{
			attribute.String("shelf.item_id", itemID.String()),
			attribute.String("shelf.price", newPrice.String()),
			attribute.Int64("shelf.stock", int64(newStock)),
		},
		func(s *State) (event.Event, error) {
			return s.decideUpdateItem(caller, itemID, newPrice, newStock)
		})
}

// RemoveItem returns a present item to absent. Only the owner may remove items.
func (l *Ledger) RemoveItem(ctx context.Context, caller id.AccountID, itemID id.ItemID) (*event.Record, error) {
	return l.commit(ctx, "remove_item", caller,
		[]attribute.KeyValue{
			attribute.String("shelf.item_id", itemID.String()),
		},
		func(s *State) (event.Event, error) {
			return s.decideRemoveItem(caller, itemID)
		})
}

// GetItem returns a copy of the item at itemID.
func (l *Ledger) GetItem(itemID id.ItemID) (item.Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	it, ok := l.state.Item(itemID)
	if !ok {
		return item.Item{}, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return it, nil
}

// ListItems returns present items ordered by ID.
func (l *Ledger) ListItems(opts item.ListOpts) []item.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Items(opts)
}

// ──────────────────────────────────────────────────
// Balances and purchases
// ──────────────────────────────────────────────────

// AddFunds credits amount to acct. Any caller may fund any account unless
// the ledger was built WithOwnerOnlyFunding.
func (l *Ledger) AddFunds(ctx context.Context, caller, acct id.AccountID, amount types.Amount) (*event.Record, error) {
	return l.commit(ctx, "add_funds", caller,
		[]attribute.KeyValue{
			attribute.String("shelf.account", acct.String()),
			attribute.String("shelf.amount", amount.String()),
		},
		func(s *State) (event.Event, error) {
			return s.decideAddFunds(l.policy, caller, acct, amount)
		})
}

// GetBalance returns the balance of acct; accounts never credited hold zero.
func (l *Ledger) GetBalance(acct id.AccountID) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Balance(acct)
}

// Purchase debits buyer by price times quantity and takes quantity units
// out of stock, or changes nothing.
func (l *Ledger) Purchase(ctx context.Context, buyer id.AccountID, itemID id.ItemID, quantity uint32) (*event.Record, error) {
	return l.commit(ctx, "purchase", buyer,
		[]attribute.KeyValue{
			attribute.String("shelf.item_id", itemID.String()),
			attribute.Int64("shelf.quantity", int64(quantity)),
		},
		func(s *State) (event.Event, error) {
			return s.decidePurchase(buyer, itemID, quantity)
		})
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

// Owner returns the identity allowed to administer inventory.
func (l *Ledger) Owner() id.AccountID { return l.owner }

// Sequence returns the sequence of the last committed record.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Sequence()
}

// Events returns committed records from the store.
func (l *Ledger) Events(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	ctx, span := l.tracer.Start(ctx, "shelf.events")
	defer span.End()

	recs, err := l.store.ListEvents(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return recs, nil
}

// TakeSnapshot saves a snapshot of the current state immediately.
func (l *Ledger) TakeSnapshot(ctx context.Context) error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return ErrNotStarted
	}
	snap := l.state.snapshot(l.clock())
	l.sinceSnapshot = 0
	l.mu.Unlock()

	return l.saveSnapshot(ctx, snap)
}

// commit runs one mutation: decide against current state, append the
// resulting record, then apply it. Plugins and snapshots run after the
// lock is released.
func (l *Ledger) commit(ctx context.Context, op string, caller id.AccountID, attrs []attribute.KeyValue, decide func(*State) (event.Event, error)) (*event.Record, error) {
	ctx, span := l.tracer.Start(ctx, "shelf."+op,
		trace.WithAttributes(append(attrs, attribute.String("shelf.caller", caller.String()))...),
	)
	defer span.End()

	rec, snap, err := l.commitLocked(ctx, caller, decide)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if IsRejection(err) {
			if errors.Is(err, ErrUnauthorized) {
				l.logger.Warn("shelf unauthorized operation",
					"operation", op,
					"caller", caller.String(),
				)
			}
			l.plugins.EmitOperationRejected(ctx, op, caller, err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("shelf.sequence", int64(rec.Sequence)),
		attribute.String("shelf.event", string(rec.Kind())),
	)

	l.logger.Debug("shelf record committed",
		"operation", op,
		"sequence", rec.Sequence,
		"kind", string(rec.Kind()),
		"caller", caller.String(),
	)

	l.plugins.EmitCommitted(ctx, rec)

	if snap != nil {
		_ = l.saveSnapshot(ctx, snap) //nolint:errcheck // logged in saveSnapshot; never fails the commit
	}

	return rec, nil
}

func (l *Ledger) commitLocked(ctx context.Context, caller id.AccountID, decide func(*State) (event.Event, error)) (*event.Record, *snapshot.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil, nil, ErrNotStarted
	}

	e, err := decide(l.state)
	if err != nil {
		return nil, nil, err
	}

	rec := &event.Record{
		ID:         id.NewEventID(),
		Sequence:   l.state.Sequence() + 1,
		Caller:     caller,
		Event:      e,
		OccurredAt: l.clock().UTC(),
	}

	if err := l.store.Append(ctx, rec); err != nil {
		l.logger.Error("shelf append failed",
			"sequence", rec.Sequence,
			"kind", string(rec.Kind()),
			"error", err,
		)
		return nil, nil, fmt.Errorf("shelf: append record %d: %w", rec.Sequence, err)
	}

	if err := l.state.Apply(rec); err != nil {
		// The record is durable but memory refused it; stop accepting
		// writes until a restart replays the journal.
		l.started = false
		l.logger.Error("shelf apply failed after append",
			"sequence", rec.Sequence,
			"error", err,
		)
		return nil, nil, err
	}

	var snap *snapshot.Snapshot
	l.sinceSnapshot++
	if l.snapshotInterval > 0 && l.sinceSnapshot >= l.snapshotInterval {
		snap = l.state.snapshot(rec.OccurredAt)
		l.sinceSnapshot = 0
	}

	return rec, snap, nil
}

func (l *Ledger) saveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	ctx, span := l.tracer.Start(ctx, "shelf.snapshot",
		trace.WithAttributes(attribute.Int64("shelf.sequence", int64(snap.Sequence))),
	)
	defer span.End()

	started := time.Now()
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Error("shelf snapshot failed",
			"sequence", snap.Sequence,
			"error", err,
		)
		return fmt.Errorf("shelf: save snapshot: %w", err)
	}
	elapsed := time.Since(started)

	l.logger.Debug("shelf snapshot saved",
		"snapshot_id", snap.ID.String(),
		"sequence", snap.Sequence,
		"items", len(snap.Items),
		"accounts", len(snap.Accounts),
	)

	l.plugins.EmitSnapshotTaken(ctx, snap.Sequence, elapsed)
	return nil
}
