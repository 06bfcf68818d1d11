package extension

import (
	"time"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/plugin"
	"github.com/xraph/shelf/store"
)

// Option configures the shelf Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithOwner sets the owner account.
func WithOwner(owner id.AccountID) Option {
	return func(e *Extension) { e.config.OwnerID = owner.String() }
}

// WithLedgerOption passes a shelf.Option through to the underlying engine.
func WithLedgerOption(opt shelf.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, shelf.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files or the
// environment. If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSnapshotInterval sets the number of commits between snapshots.
func WithSnapshotInterval(n int) Option {
	return func(e *Extension) { e.config.SnapshotInterval = n }
}

// WithDisableSnapshots turns automatic snapshots off.
func WithDisableSnapshots() Option {
	return func(e *Extension) { e.config.DisableSnapshots = true }
}

// WithStrictAdd makes adding a present item fail.
func WithStrictAdd() Option {
	return func(e *Extension) { e.config.StrictAdd = true }
}

// WithOwnerOnlyFunding restricts crediting accounts to the owner.
func WithOwnerOnlyFunding() Option {
	return func(e *Extension) { e.config.OwnerOnlyFunding = true }
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
