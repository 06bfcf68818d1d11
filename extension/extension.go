// Package extension provides the Forge extension adapter for shelf.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions,
// via YAML configuration files under "extensions.shelf" or "shelf" keys,
// or via SHELF_* environment variables.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/shelf"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/store"
	"github.com/xraph/shelf/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "shelf"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Single-owner inventory and prepaid balance ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the shelf ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *shelf.Ledger
	store      store.Store
	ledgerOpts []shelf.Option
}

// New creates a new shelf Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *shelf.Ledger { return e.engine }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	owner, err := id.ParseAccountID(e.config.OwnerID)
	if err != nil {
		return fmt.Errorf("shelf: owner_id: %w", err)
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = shelf.New(e.store, owner, buildLedgerOpts(e.config, e.ledgerOpts)...)

	return vessel.Provide(fapp.Container(), func() (*shelf.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("shelf: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension]. The extension owns its store and
// closes it after the ledger stops.
func (e *Extension) Stop(_ context.Context) error {
	defer e.MarkStopped()

	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			return err
		}
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("shelf: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs shelf.Option values from the resolved config.
// Pass-through options come last so they win.
func buildLedgerOpts(cfg Config, passthrough []shelf.Option) []shelf.Option {
	opts := make([]shelf.Option, 0, len(passthrough)+6)

	if cfg.DisableSnapshots {
		opts = append(opts, shelf.WithSnapshotInterval(0))
	} else if cfg.SnapshotInterval > 0 {
		opts = append(opts, shelf.WithSnapshotInterval(cfg.SnapshotInterval))
	}
	if cfg.ReplayPageSize > 0 {
		opts = append(opts, shelf.WithReplayPageSize(cfg.ReplayPageSize))
	}
	if cfg.PluginTimeout > 0 {
		opts = append(opts, shelf.WithPluginTimeout(cfg.PluginTimeout))
	}
	if cfg.StrictAdd {
		opts = append(opts, shelf.WithStrictAdd())
	}
	if cfg.OwnerOnlyFunding {
		opts = append(opts, shelf.WithOwnerOnlyFunding())
	}
	if cfg.DisableMigrate {
		opts = append(opts, shelf.WithSkipMigrate())
	}

	return append(opts, passthrough...)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files, the environment or
// programmatic sources, in that order.
func (e *Extension) loadConfiguration() error {
	fileConfig, fileLoaded := e.tryLoadFromConfigFile()

	cfg, err := resolveConfig(fileConfig, fileLoaded, e.config)
	if err != nil {
		return err
	}
	e.config = cfg

	e.Logger().Debug("shelf: configuration loaded",
		forge.F("owner_id", e.config.OwnerID),
		forge.F("snapshot_interval", e.config.SnapshotInterval),
		forge.F("disable_snapshots", e.config.DisableSnapshots),
		forge.F("replay_page_size", e.config.ReplayPageSize),
		forge.F("strict_add", e.config.StrictAdd),
		forge.F("owner_only_funding", e.config.OwnerOnlyFunding),
		forge.F("disable_migrate", e.config.DisableMigrate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	cfg, key, ok := bindFileConfig(
		[]string{"extensions.shelf", "shelf"},
		func(key string) bool { return cm.IsSet(key) },
		func(key string, cfg *Config) error { return cm.Bind(key, cfg) },
		func(key string, err error) {
			e.Logger().Warn("shelf: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
		},
	)
	if ok {
		e.Logger().Debug("shelf: loaded config from file",
			forge.F("key", key),
		)
	}
	return cfg, ok
}

// bindFileConfig binds the first key that is set and decodes cleanly.
// Decode failures go to warn and the next key is tried.
func bindFileConfig(
	keys []string,
	isSet func(key string) bool,
	bind func(key string, cfg *Config) error,
	warn func(key string, err error),
) (Config, string, bool) {
	for _, key := range keys {
		if !isSet(key) {
			continue
		}
		var cfg Config
		if err := bind(key, &cfg); err != nil {
			warn(key, err)
			continue
		}
		return cfg, key, true
	}
	return Config{}, "", false
}

// resolveConfig picks the file config when present, otherwise the
// environment, merges programmatic options over the gaps and fills the
// rest with defaults.
func resolveConfig(fileConfig Config, fileLoaded bool, programmatic Config) (Config, error) {
	if fileLoaded {
		return mergeConfigurations(fileConfig, programmatic), nil
	}

	envConfig, envLoaded, err := LoadConfigFromEnv()
	if err != nil {
		return Config{}, err
	}
	if envLoaded {
		return mergeConfigurations(envConfig, programmatic), nil
	}

	if programmatic.RequireConfig {
		return Config{}, errors.New("shelf: configuration is required but not found in config files or environment; " +
			"ensure 'extensions.shelf' or 'shelf' key exists in your config, or set SHELF_OWNER_ID")
	}

	return mergeWithDefaults(programmatic), nil
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = defaults.SnapshotInterval
	}
	if cfg.ReplayPageSize == 0 {
		cfg.ReplayPageSize = defaults.ReplayPageSize
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges loaded config with programmatic options.
// Loaded config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(loaded, programmatic Config) Config {
	if programmatic.DisableMigrate {
		loaded.DisableMigrate = true
	}
	if programmatic.DisableSnapshots {
		loaded.DisableSnapshots = true
	}
	if programmatic.StrictAdd {
		loaded.StrictAdd = true
	}
	if programmatic.OwnerOnlyFunding {
		loaded.OwnerOnlyFunding = true
	}

	if loaded.OwnerID == "" {
		loaded.OwnerID = programmatic.OwnerID
	}
	if loaded.SnapshotInterval == 0 {
		loaded.SnapshotInterval = programmatic.SnapshotInterval
	}
	if loaded.ReplayPageSize == 0 {
		loaded.ReplayPageSize = programmatic.ReplayPageSize
	}
	if loaded.PluginTimeout == 0 {
		loaded.PluginTimeout = programmatic.PluginTimeout
	}

	return mergeWithDefaults(loaded)
}
