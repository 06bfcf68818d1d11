// Package observability provides a metrics extension for the shelf ledger
// that records journal event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnItemAdded         = (*MetricsExtension)(nil)
	_ plugin.OnItemUpdated       = (*MetricsExtension)(nil)
	_ plugin.OnItemRemoved       = (*MetricsExtension)(nil)
	_ plugin.OnFundsAdded        = (*MetricsExtension)(nil)
	_ plugin.OnItemPurchased     = (*MetricsExtension)(nil)
	_ plugin.OnEventCommitted    = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected = (*MetricsExtension)(nil)
	_ plugin.OnSnapshotTaken     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide ledger metrics.
// Register it as a ledger plugin to track inventory and purchase activity.
type MetricsExtension struct {
	factory MetricFactory

	// Inventory metrics
	ItemAdded   Counter
	ItemUpdated Counter
	ItemRemoved Counter

	// Balance metrics
	FundsAdded    Counter
	FundsAmount   Histogram
	Purchases     Counter
	UnitsSold     Counter
	PurchaseQty   Histogram
	PurchaseTotal Histogram

	// Journal metrics
	EventsCommitted Counter
	Snapshots       Counter
	SnapshotLatency Histogram

	// Rejection metrics
	Rejections        Counter
	Unauthorized      Counter
	InsufficientStock Counter
	InsufficientFunds Counter
	Overflows         Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Inventory metrics
		ItemAdded:   factory.Counter("shelf.item.added"),
		ItemUpdated: factory.Counter("shelf.item.updated"),
		ItemRemoved: factory.Counter("shelf.item.removed"),

		// Balance metrics
		FundsAdded:    factory.Counter("shelf.funds.added"),
		FundsAmount:   factory.Histogram("shelf.funds.amount"),
		Purchases:     factory.Counter("shelf.purchase.count"),
		UnitsSold:     factory.Counter("shelf.purchase.units"),
		PurchaseQty:   factory.Histogram("shelf.purchase.quantity"),
		PurchaseTotal: factory.Histogram("shelf.purchase.total_cost"),

		// Journal metrics
		EventsCommitted: factory.Counter("shelf.events.committed"),
		Snapshots:       factory.Counter("shelf.snapshot.count"),
		SnapshotLatency: factory.Histogram("shelf.snapshot.latency_ms"),

		// Rejection metrics
		Rejections:        factory.Counter("shelf.rejected.total"),
		Unauthorized:      factory.Counter("shelf.rejected.unauthorized"),
		InsufficientStock: factory.Counter("shelf.rejected.insufficient_stock"),
		InsufficientFunds: factory.Counter("shelf.rejected.insufficient_funds"),
		Overflows:         factory.Counter("shelf.rejected.overflow"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnItemAdded implements plugin.OnItemAdded.
func (m *MetricsExtension) OnItemAdded(_ context.Context, _ *event.Record, _ event.ItemAdded) error {
	m.ItemAdded.Inc()
	return nil
}

// OnItemUpdated implements plugin.OnItemUpdated.
func (m *MetricsExtension) OnItemUpdated(_ context.Context, _ *event.Record, _ event.ItemUpdated) error {
	m.ItemUpdated.Inc()
	return nil
}

// OnItemRemoved implements plugin.OnItemRemoved.
func (m *MetricsExtension) OnItemRemoved(_ context.Context, _ *event.Record, _ event.ItemRemoved) error {
	m.ItemRemoved.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnFundsAdded implements plugin.OnFundsAdded.
func (m *MetricsExtension) OnFundsAdded(_ context.Context, _ *event.Record, e event.FundsAdded) error {
	m.FundsAdded.Inc()
	m.FundsAmount.Observe(e.Amount.Float64())
	return nil
}

// OnItemPurchased implements plugin.OnItemPurchased.
func (m *MetricsExtension) OnItemPurchased(_ context.Context, _ *event.Record, e event.ItemPurchased) error {
	m.Purchases.Inc()
	m.UnitsSold.Add(float64(e.Quantity))
	m.PurchaseQty.Observe(float64(e.Quantity))
	m.PurchaseTotal.Observe(e.TotalCost.Float64())
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnEventCommitted implements plugin.OnEventCommitted.
func (m *MetricsExtension) OnEventCommitted(_ context.Context, _ *event.Record) error {
	m.EventsCommitted.Inc()
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ id.AccountID, err error) error {
	m.Rejections.Inc()
	switch {
	case errors.Is(err, shelf.ErrUnauthorized):
		m.Unauthorized.Inc()
	case errors.Is(err, shelf.ErrInsufficientStock):
		m.InsufficientStock.Inc()
	case errors.Is(err, shelf.ErrInsufficientFunds):
		m.InsufficientFunds.Inc()
	case errors.Is(err, shelf.ErrOverflow):
		m.Overflows.Inc()
	}
	return nil
}

// OnSnapshotTaken implements plugin.OnSnapshotTaken.
func (m *MetricsExtension) OnSnapshotTaken(_ context.Context, _ uint64, elapsed time.Duration) error {
	m.Snapshots.Inc()
	m.SnapshotLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
