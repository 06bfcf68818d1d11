package plugin_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/plugin"
	"github.com/xraph/shelf/types"
)

type named string

func (n named) Name() string { return string(n) }

type purchaseWatcher struct {
	named
	purchases []event.ItemPurchased
	committed []uint64
}

func (w *purchaseWatcher) OnItemPurchased(_ context.Context, _ *event.Record, e event.ItemPurchased) error {
	w.purchases = append(w.purchases, e)
	return nil
}

func (w *purchaseWatcher) OnEventCommitted(_ context.Context, rec *event.Record) error {
	w.committed = append(w.committed, rec.Sequence)
	return nil
}

type rejectionWatcher struct {
	named
	ops []string
}

func (w *rejectionWatcher) OnOperationRejected(_ context.Context, op string, _ id.AccountID, _ error) error {
	w.ops = append(w.ops, op)
	return errors.New("ignored")
}

type slowPlugin struct {
	named
	release chan struct{}
}

func (p *slowPlugin) OnEventCommitted(_ context.Context, _ *event.Record) error {
	<-p.release
	return nil
}

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.DiscardHandler))
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := quietRegistry()

	if err := r.Register(named("audit")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&purchaseWatcher{named: "audit"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
	if r.Get("audit") == nil {
		t.Error("Get(audit) = nil")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestHooks(t *testing.T) {
	tests := []struct {
		name   string
		plugin plugin.Plugin
		want   []string
	}{
		{"none", named("bare"), nil},
		{"purchase watcher", &purchaseWatcher{named: "p"}, []string{"OnItemPurchased", "OnEventCommitted"}},
		{"rejection watcher", &rejectionWatcher{named: "r"}, []string{"OnOperationRejected"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plugin.Hooks(tt.plugin); !slices.Equal(got, tt.want) {
				t.Errorf("Hooks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmitCommittedDispatchesByKind(t *testing.T) {
	ctx := context.Background()
	r := quietRegistry()
	w := &purchaseWatcher{named: "watcher"}
	if err := r.Register(w); err != nil {
		t.Fatalf("Register: %v", err)
	}

	book := id.NewItemID()
	buyer := id.NewAccountID()
	records := []*event.Record{
		{Sequence: 1, Event: event.ItemAdded{ItemID: book, Title: "T", Price: types.NewAmount(2), Stock: 1}},
		{Sequence: 2, Event: event.FundsAdded{Account: buyer, Amount: types.NewAmount(2)}},
		{Sequence: 3, Event: event.ItemPurchased{Buyer: buyer, ItemID: book, Quantity: 1, TotalCost: types.NewAmount(2)}},
	}
	for _, rec := range records {
		r.EmitCommitted(ctx, rec)
	}

	if len(w.purchases) != 1 || w.purchases[0].Buyer != buyer {
		t.Errorf("purchases = %+v", w.purchases)
	}
	if !slices.Equal(w.committed, []uint64{1, 2, 3}) {
		t.Errorf("committed = %v, want [1 2 3]", w.committed)
	}
}

func TestPluginErrorsAreContained(t *testing.T) {
	var buf bytes.Buffer
	r := plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	w := &rejectionWatcher{named: "rejections"}
	if err := r.Register(w); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.EmitOperationRejected(context.Background(), "purchase", id.NewAccountID(), errors.New("insufficient funds"))

	if !slices.Equal(w.ops, []string{"purchase"}) {
		t.Errorf("ops = %v", w.ops)
	}
	if !strings.Contains(buf.String(), "plugin OnOperationRejected failed") {
		t.Errorf("failure not logged: %s", buf.String())
	}
}

func TestSlowPluginTimesOut(t *testing.T) {
	var buf bytes.Buffer
	r := plugin.NewRegistry().
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))).
		WithTimeout(20 * time.Millisecond)

	p := &slowPlugin{named: "slow", release: make(chan struct{})}
	defer close(p.release)
	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	start := time.Now()
	r.EmitCommitted(context.Background(), &event.Record{Sequence: 1, Event: event.ItemRemoved{ItemID: id.NewItemID()}})

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("EmitCommitted blocked for %s", elapsed)
	}
	if !strings.Contains(buf.String(), "plugin timeout: slow") {
		t.Errorf("timeout not logged: %s", buf.String())
	}
}
