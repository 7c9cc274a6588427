package extension

import (
	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/api"
	"github.com/xraph/ecoseed/plugin"
	"github.com/xraph/ecoseed/store"
)

// Option configures the Eco-Seed Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes an ecoseed.Option through to the underlying ledger.
func WithLedgerOption(opt ecoseed.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, ecoseed.WithPlugin(p))
	}
}

// WithAPIOption passes an api.Option through to the HTTP handler.
func WithAPIOption(opt api.Option) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, opt)
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes disables the HTTP handler.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for ledger routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithTimezone sets the IANA zone that decides the current month.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
