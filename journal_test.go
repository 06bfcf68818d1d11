package shelf_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
	"github.com/xraph/shelf/store/memory"
)

// seed runs a fixed history against l and returns the accounts it funded.
func seed(t *testing.T, l *shelf.Ledger, owner id.AccountID) []id.AccountID {
	t.Helper()
	ctx := context.Background()

	a, b := id.NewAccountID(), id.NewAccountID()
	x, y, z := id.NewItemID(), id.NewItemID(), id.NewItemID()

	steps := []func() (*event.Record, error){
		func() (*event.Record, error) { return l.AddItem(ctx, owner, x, "X", "ax", amt(10), 5) },
		func() (*event.Record, error) { return l.AddItem(ctx, owner, y, "Y", "ay", amt(7), 3) },
		func() (*event.Record, error) { return l.AddItem(ctx, owner, z, "Z", "az", amt(1), 1) },
		func() (*event.Record, error) { return l.AddFunds(ctx, a, a, amt(100)) },
		func() (*event.Record, error) { return l.AddFunds(ctx, b, b, amt(40)) },
		func() (*event.Record, error) { return l.Purchase(ctx, a, x, 2) },
		func() (*event.Record, error) { return l.UpdateItem(ctx, owner, y, amt(9), 8) },
		func() (*event.Record, error) { return l.Purchase(ctx, b, y, 4) },
		func() (*event.Record, error) { return l.RemoveItem(ctx, owner, z) },
		func() (*event.Record, error) { return l.AddFunds(ctx, b, a, amt(5)) },
	}
	for i, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return []id.AccountID{a, b}
}

func assertSameState(t *testing.T, want, got *shelf.Ledger, accounts []id.AccountID) {
	t.Helper()

	if got.Sequence() != want.Sequence() {
		t.Errorf("sequence = %d, want %d", got.Sequence(), want.Sequence())
	}

	wantItems, gotItems := want.ListItems(item.ListOpts{}), got.ListItems(item.ListOpts{})
	if len(gotItems) != len(wantItems) {
		t.Fatalf("items = %d, want %d", len(gotItems), len(wantItems))
	}
	for i := range wantItems {
		w, g := wantItems[i], gotItems[i]
		if g.ID != w.ID || g.Title != w.Title || g.Author != w.Author ||
			!g.Price.Equal(w.Price) || g.Stock != w.Stock ||
			!g.CreatedAt.Equal(w.CreatedAt) || !g.UpdatedAt.Equal(w.UpdatedAt) {
			t.Errorf("item %d = %+v, want %+v", i, g, w)
		}
	}

	for _, a := range accounts {
		if g, w := got.GetBalance(a), want.GetBalance(a); !g.Equal(w) {
			t.Errorf("balance of %s = %s, want %s", a, g, w)
		}
	}
}

func TestReplayRebuildsState(t *testing.T) {
	s := memory.New()
	owner := id.NewAccountID()

	original := startLedger(t, s, owner, shelf.WithSnapshotInterval(0))
	accounts := seed(t, original, owner)
	if err := original.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	restarted := startLedger(t, s, owner, shelf.WithReplayPageSize(3))
	defer restarted.Stop()

	assertSameState(t, original, restarted, accounts)

	// The journal continues where it left off.
	rec, err := restarted.AddFunds(context.Background(), owner, owner, amt(1))
	if err != nil {
		t.Fatalf("AddFunds after restart: %v", err)
	}
	if rec.Sequence != original.Sequence()+1 {
		t.Errorf("sequence = %d, want %d", rec.Sequence, original.Sequence()+1)
	}
}

func TestStopLeavesStoreOpen(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	owner := id.NewAccountID()

	l := startLedger(t, s, owner, shelf.WithSkipMigrate())
	seed(t, l, owner)
	want := l.Sequence()
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("store closed by Stop: %v", err)
	}

	// The same ledger restarts without a Migrate call to revive the store.
	if err := l.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer l.Stop()
	if l.Sequence() != want {
		t.Errorf("sequence after restart = %d, want %d", l.Sequence(), want)
	}
	if _, err := l.AddFunds(ctx, owner, owner, amt(1)); err != nil {
		t.Errorf("AddFunds after restart: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := l.AddFunds(ctx, owner, owner, amt(1)); !errors.Is(err, shelf.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed once the owner closes the store, got %v", err)
	}
}

func TestSnapshotPlusTailEqualsFullReplay(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	owner := id.NewAccountID()

	original := startLedger(t, s, owner, shelf.WithSnapshotInterval(4))
	accounts := seed(t, original, owner)

	snap, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.Sequence != 8 {
		t.Errorf("snapshot sequence = %d, want 8", snap.Sequence)
	}
	if snap.Owner != owner {
		t.Errorf("snapshot owner = %s, want %s", snap.Owner, owner)
	}
	recs, err := s.ListEvents(ctx, event.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if err := original.Stop(); err != nil {
		t.Fatal(err)
	}

	fromSnapshot := startLedger(t, s, owner)
	assertSameState(t, original, fromSnapshot, accounts)
	_ = fromSnapshot.Stop()

	// A fresh store holding only the journal gives the same answer.
	journalOnly := memory.New()
	for _, rec := range recs {
		if err := journalOnly.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	fullReplay := startLedger(t, journalOnly, owner)
	defer fullReplay.Stop()
	assertSameState(t, original, fullReplay, accounts)
}

func TestTakeSnapshot(t *testing.T) {
	ctx := context.Background()
	l, s, owner := newLedger(t, shelf.WithSnapshotInterval(0))
	seed(t, l, owner)

	if _, err := s.LatestSnapshot(ctx); !errors.Is(err, shelf.ErrNotFound) {
		t.Fatalf("LatestSnapshot err = %v, want ErrNotFound", err)
	}
	if err := l.TakeSnapshot(ctx); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}

	snap, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.Sequence != l.Sequence() {
		t.Errorf("snapshot sequence = %d, want %d", snap.Sequence, l.Sequence())
	}
	if len(snap.Items) != 2 || len(snap.Accounts) != 2 {
		t.Errorf("snapshot holds %d items and %d accounts, want 2 and 2", len(snap.Items), len(snap.Accounts))
	}
}

func TestStartRejectsCorruptJournal(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		recs []*event.Record
	}{
		{
			name: "purchase of absent item",
			recs: []*event.Record{{
				ID: id.NewEventID(), Sequence: 1, Caller: id.NewAccountID(),
				Event: event.ItemPurchased{Buyer: id.NewAccountID(), ItemID: id.NewItemID(), Quantity: 1, TotalCost: amt(1)},
			}},
		},
		{
			name: "sequence gap",
			recs: []*event.Record{{
				ID: id.NewEventID(), Sequence: 2, Caller: id.NewAccountID(),
				Event: event.FundsAdded{Account: id.NewAccountID(), Amount: amt(1)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			for _, rec := range tt.recs {
				if err := s.Append(ctx, rec); err != nil {
					t.Fatal(err)
				}
			}

			l := shelf.New(s, id.NewAccountID(), shelf.WithLogger(quietLogger()))
			if err := l.Start(ctx); !errors.Is(err, shelf.ErrCorruptJournal) {
				t.Fatalf("Start err = %v, want ErrCorruptJournal", err)
			}
			if _, err := l.AddFunds(ctx, id.NewAccountID(), id.NewAccountID(), amt(1)); !errors.Is(err, shelf.ErrNotStarted) {
				t.Errorf("AddFunds after failed Start err = %v, want ErrNotStarted", err)
			}
		})
	}
}

func TestStartRejectsForeignSnapshot(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	first := startLedger(t, s, id.NewAccountID())
	if err := first.TakeSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	_ = first.Stop()

	second := shelf.New(s, id.NewAccountID(), shelf.WithLogger(quietLogger()))
	if err := second.Start(ctx); !errors.Is(err, shelf.ErrOwnerMismatch) {
		t.Fatalf("Start err = %v, want ErrOwnerMismatch", err)
	}
}

// flakyStore fails appends while broken is set.
type flakyStore struct {
	*memory.Store

	mu     sync.Mutex
	broken bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyStore) Append(ctx context.Context, rec *event.Record) error {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return errDiskFull
	}
	return f.Store.Append(ctx, rec)
}

func TestAppendFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Store: memory.New()}
	owner := id.NewAccountID()
	l := shelf.New(s, owner, shelf.WithLogger(quietLogger()))
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	book := id.NewItemID()
	buyer := id.NewAccountID()
	if _, err := l.AddItem(ctx, owner, book, "T", "A", amt(5), 3); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddFunds(ctx, buyer, buyer, amt(20)); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	s.broken = true
	s.mu.Unlock()

	_, err := l.Purchase(ctx, buyer, book, 2)
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Purchase err = %v, want wrapped errDiskFull", err)
	}
	if shelf.IsRejection(err) {
		t.Errorf("store failure reported as a rejection")
	}
	if it, _ := l.GetItem(book); it.Stock != 3 {
		t.Errorf("stock = %d, want 3", it.Stock)
	}
	if got := l.GetBalance(buyer); !got.Equal(amt(20)) {
		t.Errorf("balance = %s, want 20", got)
	}
	if l.Sequence() != 2 {
		t.Errorf("sequence = %d, want 2", l.Sequence())
	}

	s.mu.Lock()
	s.broken = false
	s.mu.Unlock()

	rec, err := l.Purchase(ctx, buyer, book, 2)
	if err != nil {
		t.Fatalf("Purchase after recovery: %v", err)
	}
	if rec.Sequence != 3 {
		t.Errorf("sequence = %d, want 3", rec.Sequence)
	}
}

// recordingPlugin captures every hook call.
type recordingPlugin struct {
	mu        sync.Mutex
	inits     int
	shutdowns int
	committed []uint64
	purchases []event.ItemPurchased
	rejected  []string
	snapshots []uint64
}

func (p *recordingPlugin) Name() string { return "recorder" }

func (p *recordingPlugin) OnInit(context.Context, any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	return nil
}

func (p *recordingPlugin) OnShutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return nil
}

func (p *recordingPlugin) OnEventCommitted(_ context.Context, rec *event.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.committed = append(p.committed, rec.Sequence)
	return nil
}

func (p *recordingPlugin) OnItemPurchased(_ context.Context, _ *event.Record, e event.ItemPurchased) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchases = append(p.purchases, e)
	return nil
}

func (p *recordingPlugin) OnOperationRejected(_ context.Context, op string, _ id.AccountID, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, op)
	return nil
}

func (p *recordingPlugin) OnSnapshotTaken(_ context.Context, sequence uint64, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, sequence)
	return nil
}

// failingPlugin always errors; the ledger must not care.
type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }

func (failingPlugin) OnEventCommitted(context.Context, *event.Record) error {
	return errors.New("boom")
}

func TestPluginsObserveCommittedRecords(t *testing.T) {
	ctx := context.Background()
	p := &recordingPlugin{}
	s := memory.New()
	owner := id.NewAccountID()
	l := startLedger(t, s, owner,
		shelf.WithPlugin(p),
		shelf.WithPlugin(failingPlugin{}),
		shelf.WithSnapshotInterval(2),
	)

	book := id.NewItemID()
	buyer := id.NewAccountID()
	if _, err := l.AddItem(ctx, owner, book, "T", "A", amt(2), 5); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddFunds(ctx, buyer, buyer, amt(10)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Purchase(ctx, buyer, book, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Purchase(ctx, buyer, book, 9); err == nil {
		t.Fatal("expected rejection")
	}
	if _, err := l.RemoveItem(ctx, buyer, book); err == nil {
		t.Fatal("expected rejection")
	}
	if err := l.Stop(); err != nil {
		t.Fatal(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inits != 1 || p.shutdowns != 1 {
		t.Errorf("inits=%d shutdowns=%d, want 1 and 1", p.inits, p.shutdowns)
	}
	if len(p.committed) != 3 || p.committed[0] != 1 || p.committed[2] != 3 {
		t.Errorf("committed = %v, want [1 2 3]", p.committed)
	}
	want := event.ItemPurchased{Buyer: buyer, ItemID: book, Quantity: 2, TotalCost: amt(4)}
	if len(p.purchases) != 1 || p.purchases[0] != want {
		t.Errorf("purchases = %+v, want [%+v]", p.purchases, want)
	}
	if len(p.rejected) != 2 || p.rejected[0] != "purchase" || p.rejected[1] != "remove_item" {
		t.Errorf("rejected = %v", p.rejected)
	}
	if len(p.snapshots) != 1 || p.snapshots[0] != 2 {
		t.Errorf("snapshots = %v, want [2]", p.snapshots)
	}
}

func TestOperationSpans(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(ctx) }()

	l, _, owner := newLedger(t, shelf.WithTracer(tp.Tracer("shelf-test")))
	book := id.NewItemID()

	if _, err := l.AddItem(ctx, owner, book, "T", "A", amt(1), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Purchase(ctx, id.NewAccountID(), book, 1); !errors.Is(err, shelf.ErrInsufficientFunds) {
		t.Fatalf("Purchase err = %v, want ErrInsufficientFunds", err)
	}

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}

	add, ok := spans["shelf.add_item"]
	if !ok {
		t.Fatalf("no shelf.add_item span in %v", spans)
	}
	if add.Status().Code == codes.Error {
		t.Errorf("add_item span has error status")
	}

	purchase, ok := spans["shelf.purchase"]
	if !ok {
		t.Fatalf("no shelf.purchase span")
	}
	if purchase.Status().Code != codes.Error {
		t.Errorf("purchase span status = %v, want Error", purchase.Status().Code)
	}
	var quantity bool
	for _, kv := range purchase.Attributes() {
		if string(kv.Key) == "shelf.quantity" && kv.Value.AsInt64() == 1 {
			quantity = true
		}
	}
	if !quantity {
		t.Errorf("purchase span lacks shelf.quantity attribute")
	}
}
