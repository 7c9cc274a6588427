package extension

// Config holds the Eco-Seed extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.ecoseed" or "ecoseed" keys).
type Config struct {
	// DisableRoutes makes Handler return nil.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for ledger routes (default: "/ecoseed").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// MemberHeader is the request header carrying the authenticated member
	// (default: "X-Member-Ref").
	MemberHeader string `json:"member_header" mapstructure:"member_header" yaml:"member_header"`

	// DefaultPageSize is the history page size when a request omits one
	// (default: 20).
	DefaultPageSize int `json:"default_page_size" mapstructure:"default_page_size" yaml:"default_page_size"`

	// MaxPageSize caps requested history page sizes (default: 100).
	MaxPageSize int `json:"max_page_size" mapstructure:"max_page_size" yaml:"max_page_size"`

	// Timezone names the IANA zone that decides the current month
	// (default: "UTC").
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:        "/ecoseed",
		MemberHeader:    "X-Member-Ref",
		DefaultPageSize: 20,
		MaxPageSize:     100,
		Timezone:        "UTC",
	}
}
