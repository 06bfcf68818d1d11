package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
)

// DefaultTimeout bounds every plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages registered plugins. Hook implementations are discovered
// once at registration and cached per hook for dispatch.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit              []OnInit
	onShutdown          []OnShutdown
	onItemAdded         []OnItemAdded
	onItemUpdated       []OnItemUpdated
	onItemRemoved       []OnItemRemoved
	onFundsAdded        []OnFundsAdded
	onItemPurchased     []OnItemPurchased
	onEventCommitted    []OnEventCommitted
	onOperationRejected []OnOperationRejected
	onSnapshotTaken     []OnSnapshotTaken
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnItemAdded); ok {
		r.onItemAdded = append(r.onItemAdded, v)
	}
	if v, ok := p.(OnItemUpdated); ok {
		r.onItemUpdated = append(r.onItemUpdated, v)
	}
	if v, ok := p.(OnItemRemoved); ok {
		r.onItemRemoved = append(r.onItemRemoved, v)
	}
	if v, ok := p.(OnFundsAdded); ok {
		r.onFundsAdded = append(r.onFundsAdded, v)
	}
	if v, ok := p.(OnItemPurchased); ok {
		r.onItemPurchased = append(r.onItemPurchased, v)
	}
	if v, ok := p.(OnEventCommitted); ok {
		r.onEventCommitted = append(r.onEventCommitted, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}
	if v, ok := p.(OnSnapshotTaken); ok {
		r.onSnapshotTaken = append(r.onSnapshotTaken, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", Hooks(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnItemAdded", reflect.TypeFor[OnItemAdded]()},
	{"OnItemUpdated", reflect.TypeFor[OnItemUpdated]()},
	{"OnItemRemoved", reflect.TypeFor[OnItemRemoved]()},
	{"OnFundsAdded", reflect.TypeFor[OnFundsAdded]()},
	{"OnItemPurchased", reflect.TypeFor[OnItemPurchased]()},
	{"OnEventCommitted", reflect.TypeFor[OnEventCommitted]()},
	{"OnOperationRejected", reflect.TypeFor[OnOperationRejected]()},
	{"OnSnapshotTaken", reflect.TypeFor[OnSnapshotTaken]()},
}

// Hooks lists the hook interfaces p implements.
func Hooks(p Plugin) []string {
	var hooks []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			hooks = append(hooks, h.name)
		}
	}
	return hooks
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitCommitted dispatches a committed record to the hook for its kind and
// then to every OnEventCommitted plugin.
func (r *Registry) EmitCommitted(ctx context.Context, rec *event.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch e := rec.Event.(type) {
	case event.ItemAdded:
		for _, p := range r.onItemAdded {
			r.call(ctx, p.Name(), "OnItemAdded", func() error {
				return p.OnItemAdded(ctx, rec, e)
			})
		}
	case event.ItemUpdated:
		for _, p := range r.onItemUpdated {
			r.call(ctx, p.Name(), "OnItemUpdated", func() error {
				return p.OnItemUpdated(ctx, rec, e)
			})
		}
	case event.ItemRemoved:
		for _, p := range r.onItemRemoved {
			r.call(ctx, p.Name(), "OnItemRemoved", func() error {
				return p.OnItemRemoved(ctx, rec, e)
			})
		}
	case event.FundsAdded:
		for _, p := range r.onFundsAdded {
			r.call(ctx, p.Name(), "OnFundsAdded", func() error {
				return p.OnFundsAdded(ctx, rec, e)
			})
		}
	case event.ItemPurchased:
		for _, p := range r.onItemPurchased {
			r.call(ctx, p.Name(), "OnItemPurchased", func() error {
				return p.OnItemPurchased(ctx, rec, e)
			})
		}
	}

	for _, p := range r.onEventCommitted {
		r.call(ctx, p.Name(), "OnEventCommitted", func() error {
			return p.OnEventCommitted(ctx, rec)
		})
	}
}

// EmitOperationRejected calls OnOperationRejected for all plugins that implement it.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, caller id.AccountID, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnOperationRejected", func() error {
			return p.OnOperationRejected(ctx, op, caller, opErr)
		})
	}
}

// EmitSnapshotTaken calls OnSnapshotTaken for all plugins that implement it.
func (r *Registry) EmitSnapshotTaken(ctx context.Context, sequence uint64, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onSnapshotTaken
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnSnapshotTaken", func() error {
			return p.OnSnapshotTaken(ctx, sequence, elapsed)
		})
	}
}

// call runs fn under the registry timeout and logs failures. A plugin
// error never reaches the ledger operation that triggered it.
func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
