package extension

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/xraph/shelf"
)

// Config holds the shelf extension configuration.
// Fields can be set programmatically via Option functions, loaded from
// YAML configuration files (under "extensions.shelf" or "shelf" keys), or
// read from SHELF_* environment variables.
type Config struct {
	// OwnerID is the account allowed to administer inventory (required).
	OwnerID string `json:"owner_id" mapstructure:"owner_id" yaml:"owner_id" env:"SHELF_OWNER_ID"`

	// SnapshotInterval is the number of commits between automatic
	// snapshots (default: 1000).
	SnapshotInterval int `json:"snapshot_interval" mapstructure:"snapshot_interval" yaml:"snapshot_interval" env:"SHELF_SNAPSHOT_INTERVAL"`

	// DisableSnapshots turns automatic snapshots off.
	DisableSnapshots bool `json:"disable_snapshots" mapstructure:"disable_snapshots" yaml:"disable_snapshots" env:"SHELF_DISABLE_SNAPSHOTS"`

	// ReplayPageSize is the number of journal records read per page while
	// starting (default: 500).
	ReplayPageSize int `json:"replay_page_size" mapstructure:"replay_page_size" yaml:"replay_page_size" env:"SHELF_REPLAY_PAGE_SIZE"`

	// StrictAdd makes adding a present item fail instead of replacing it.
	StrictAdd bool `json:"strict_add" mapstructure:"strict_add" yaml:"strict_add" env:"SHELF_STRICT_ADD"`

	// OwnerOnlyFunding restricts crediting accounts to the owner.
	OwnerOnlyFunding bool `json:"owner_only_funding" mapstructure:"owner_only_funding" yaml:"owner_only_funding" env:"SHELF_OWNER_ONLY_FUNDING"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate" env:"SHELF_DISABLE_MIGRATE"`

	// PluginTimeout bounds each plugin call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout" env:"SHELF_PLUGIN_TIMEOUT"`

	// RequireConfig requires config to be present in YAML files or the
	// environment. If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SnapshotInterval: shelf.DefaultSnapshotInterval,
		ReplayPageSize:   shelf.DefaultReplayPageSize,
		PluginTimeout:    5 * time.Second,
	}
}

// LoadConfigFromEnv reads SHELF_* environment variables. The bool reports
// whether any field was set.
func LoadConfigFromEnv() (Config, bool, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, false, fmt.Errorf("shelf: parse env: %w", err)
	}
	return cfg, cfg != (Config{}), nil
}
