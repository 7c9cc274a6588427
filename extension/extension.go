// Package extension provides the Forge extension adapter for the Eco-Seed
// ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.ecoseed" or "ecoseed" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/api"
	"github.com/xraph/ecoseed/store"
	"github.com/xraph/ecoseed/store/memory"
	mongostore "github.com/xraph/ecoseed/store/mongo"
	pgstore "github.com/xraph/ecoseed/store/postgres"
	sqlitestore "github.com/xraph/ecoseed/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "ecoseed"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Eco-Seed reward points ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the Eco-Seed ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *ecoseed.Ledger
	store      store.Store
	useGrove   bool
	ledgerOpts []ecoseed.Option
	apiOpts    []api.Option
}

// New creates a new Eco-Seed Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Ledger() *ecoseed.Ledger { return e.ledger }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil && e.useGrove {
		s, err := e.resolveGroveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}
	e.ledger = ecoseed.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*ecoseed.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("ecoseed: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.ledger.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("ecoseed: store not initialized")
	}
	return e.store.Ping(ctx)
}

// Handler returns the HTTP API mounted under BasePath, or nil when routes
// are disabled or Register has not run.
func (e *Extension) Handler() http.Handler {
	if e.config.DisableRoutes || e.ledger == nil {
		return nil
	}

	opts := append([]api.Option{
		api.WithIdentity(api.HeaderIdentity{Header: e.config.MemberHeader}),
	}, e.apiOpts...)
	h := api.NewServer(e.ledger, opts...).Handler()

	base := strings.TrimRight(e.config.BasePath, "/")
	if base == "" {
		return h
	}
	return http.StripPrefix(base, h)
}

// resolveGroveStore picks the store backend from the grove driver of the
// database registered in the container.
func (e *Extension) resolveGroveStore(fapp forge.App) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("ecoseed: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}
	return storeForDriver(db)
}

func storeForDriver(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return pgstore.New(db), nil
	case "sqlite":
		return sqlitestore.New(db), nil
	case "mongo":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("ecoseed: unsupported grove driver %q", name)
	}
}

// buildLedgerOpts constructs ecoseed.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]ecoseed.Option, error) {
	opts := make([]ecoseed.Option, 0, len(e.ledgerOpts)+3)

	if e.config.MaxPageSize > 0 {
		opts = append(opts, ecoseed.WithMaxPageSize(e.config.MaxPageSize))
	}
	if e.config.DefaultPageSize > 0 {
		opts = append(opts, ecoseed.WithDefaultPageSize(e.config.DefaultPageSize))
	}
	if e.config.Timezone != "" {
		loc, err := time.LoadLocation(e.config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("ecoseed: timezone %q: %w", e.config.Timezone, err)
		}
		opts = append(opts, ecoseed.WithLocation(loc))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("ecoseed: configuration is required but not found in config files; " +
				"ensure 'extensions.ecoseed' or 'ecoseed' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}
	if e.config.GroveDatabase != "" {
		e.useGrove = true
	}

	e.Logger().Debug("ecoseed: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("timezone", e.config.Timezone),
		forge.F("grove_database", e.config.GroveDatabase),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.ecoseed", "ecoseed"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("ecoseed: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("ecoseed: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.MemberHeader == "" {
		cfg.MemberHeader = defaults.MemberHeader
	}
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = defaults.DefaultPageSize
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = defaults.MaxPageSize
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.MemberHeader == "" {
		yamlConfig.MemberHeader = programmaticConfig.MemberHeader
	}
	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if yamlConfig.GroveDatabase == "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.DefaultPageSize == 0 {
		yamlConfig.DefaultPageSize = programmaticConfig.DefaultPageSize
	}
	if yamlConfig.MaxPageSize == 0 {
		yamlConfig.MaxPageSize = programmaticConfig.MaxPageSize
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
