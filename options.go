package shelf

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/shelf/plugin"
)

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithTracer sets the tracer operations open spans on.
func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = t
	}
}

// WithSnapshotInterval snapshots state every n commits. Zero disables
// automatic snapshots.
func WithSnapshotInterval(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.snapshotInterval = n
		}
	}
}

// WithReplayPageSize sets how many records Start reads per page.
func WithReplayPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.replayPageSize = n
		}
	}
}

// WithSkipMigrate makes Start use the store's schema as is.
func WithSkipMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// WithStrictAdd makes AddItem fail with ErrAlreadyExists for a present item
// instead of replacing it.
func WithStrictAdd() Option {
	return func(l *Ledger) {
		l.policy.strictAdd = true
	}
}

// WithOwnerOnlyFunding restricts AddFunds to the owner.
func WithOwnerOnlyFunding() Option {
	return func(l *Ledger) {
		l.policy.ownerOnlyFunding = true
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.clock = now
		}
	}
}
