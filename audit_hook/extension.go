// Package audithook bridges shelf journal events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnItemAdded         = (*Extension)(nil)
	_ plugin.OnItemUpdated       = (*Extension)(nil)
	_ plugin.OnItemRemoved       = (*Extension)(nil)
	_ plugin.OnFundsAdded        = (*Extension)(nil)
	_ plugin.OnItemPurchased     = (*Extension)(nil)
	_ plugin.OnOperationRejected = (*Extension)(nil)
	_ plugin.OnSnapshotTaken     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Sequence   uint64         `json:"sequence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges shelf journal events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnItemAdded implements plugin.OnItemAdded.
func (e *Extension) OnItemAdded(ctx context.Context, rec *event.Record, ev event.ItemAdded) error {
	return e.record(ctx, entry{
		action: ActionItemAdded, resource: ResourceItem, resourceID: ev.ItemID.String(),
		category: CategoryInventory, rec: rec,
	},
		"title", ev.Title,
		"author", ev.Author,
		"price", ev.Price.String(),
		"stock", ev.Stock,
	)
}

// OnItemUpdated implements plugin.OnItemUpdated.
func (e *Extension) OnItemUpdated(ctx context.Context, rec *event.Record, ev event.ItemUpdated) error {
	return e.record(ctx, entry{
		action: ActionItemUpdated, resource: ResourceItem, resourceID: ev.ItemID.String(),
		category: CategoryInventory, rec: rec,
	},
		"price", ev.NewPrice.String(),
		"stock", ev.NewStock,
	)
}

// OnItemRemoved implements plugin.OnItemRemoved.
func (e *Extension) OnItemRemoved(ctx context.Context, rec *event.Record, ev event.ItemRemoved) error {
	return e.record(ctx, entry{
		action: ActionItemRemoved, resource: ResourceItem, resourceID: ev.ItemID.String(),
		category: CategoryInventory, severity: SeverityWarning, rec: rec,
	})
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnFundsAdded implements plugin.OnFundsAdded.
func (e *Extension) OnFundsAdded(ctx context.Context, rec *event.Record, ev event.FundsAdded) error {
	return e.record(ctx, entry{
		action: ActionFundsAdded, resource: ResourceAccount, resourceID: ev.Account.String(),
		category: CategoryPayment, rec: rec,
	},
		"amount", ev.Amount.String(),
	)
}

// OnItemPurchased implements plugin.OnItemPurchased.
func (e *Extension) OnItemPurchased(ctx context.Context, rec *event.Record, ev event.ItemPurchased) error {
	return e.record(ctx, entry{
		action: ActionItemPurchased, resource: ResourceItem, resourceID: ev.ItemID.String(),
		category: CategoryPayment, rec: rec,
	},
		"buyer", ev.Buyer.String(),
		"quantity", ev.Quantity,
		"total_cost", ev.TotalCost.String(),
	)
}

// ──────────────────────────────────────────────────
// Rejections and journal
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected. Unauthorized
// attempts are recorded as access failures; other rejections as warnings.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, caller id.AccountID, err error) error {
	ent := entry{
		action: ActionOperationRejected, resource: ResourceJournal,
		category: CategoryInventory, severity: SeverityWarning,
		outcome: OutcomeFailure, actor: caller, err: err,
	}
	if errors.Is(err, shelf.ErrUnauthorized) {
		ent.action = ActionUnauthorized
		ent.category = CategoryAccess
		ent.severity = SeverityCritical
	}
	return e.record(ctx, ent, "operation", op)
}

// OnSnapshotTaken implements plugin.OnSnapshotTaken.
func (e *Extension) OnSnapshotTaken(ctx context.Context, sequence uint64, elapsed time.Duration) error {
	return e.record(ctx, entry{
		action: ActionSnapshotTaken, resource: ResourceJournal,
		category: CategorySystem, sequence: sequence,
	},
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

type entry struct {
	action, resource, resourceID, category string
	severity, outcome                      string
	actor                                  id.AccountID
	sequence                               uint64
	rec                                    *event.Record
	err                                    error
}

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and never returned to the ledger.
func (e *Extension) record(ctx context.Context, ent entry, kvPairs ...any) error {
	if e.enabled != nil && !e.enabled[ent.action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if ent.err != nil {
		reason = ent.err.Error()
		meta["error"] = ent.err.Error()
	}

	actor, sequence := ent.actor, ent.sequence
	if ent.rec != nil {
		actor = ent.rec.Caller
		sequence = ent.rec.Sequence
		meta["event_id"] = ent.rec.ID.String()
	}

	evt := &AuditEvent{
		Action:     ent.action,
		Resource:   ent.resource,
		Category:   ent.category,
		ResourceID: ent.resourceID,
		ActorID:    actor.String(),
		Sequence:   sequence,
		Metadata:   meta,
		Outcome:    or(ent.outcome, OutcomeSuccess),
		Severity:   or(ent.severity, SeverityInfo),
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", ent.action,
			"resource_id", ent.resourceID,
			"error", recErr,
		)
	}
	return nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
