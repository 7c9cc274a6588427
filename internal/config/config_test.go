package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xraph/ecoseed"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecoseed.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9090"
timeout = "5s"

[store]
backend = "postgres"
dsn = "postgres://localhost/ecoseed"

[ledger]
timezone = "Asia/Seoul"
max_page_size = 50

[log]
format = "json"
`)
	t.Setenv("ECOSEED_ADDR", ":7070")
	t.Setenv("ECOSEED_DEFAULT_PAGE_SIZE", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"addr from env", cfg.Server.Addr, ":7070"},
		{"timeout from file", cfg.Server.Timeout.Duration, 5 * time.Second},
		{"backend", cfg.Store.Backend, BackendPostgres},
		{"timezone", cfg.Ledger.Timezone, "Asia/Seoul"},
		{"max page", cfg.Ledger.MaxPageSize, 50},
		{"default page from env", cfg.Ledger.DefaultPageSize, 10},
		{"format", cfg.Log.Format, "json"},
		{"level default", cfg.Log.Level, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("ECOSEED_MAX_PAGE_SIZE", "lots")
	t.Setenv("ECOSEED_TIMEOUT", "soon")
	_, err := Load("")
	var me ecoseed.MultiError
	if !errors.As(err, &me) || len(me.Errors) != 2 {
		t.Fatalf("Load = %v, want 2 collected errors", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load(missing) = nil, want error")
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "redis"
	cfg.Ledger.Timezone = "Nowhere/Land"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.AMQP.URL = "http://broker"

	err := cfg.Validate()
	var me ecoseed.MultiError
	if !errors.As(err, &me) {
		t.Fatalf("Validate = %v, want MultiError", err)
	}
	if len(me.Errors) != 5 {
		t.Errorf("errors = %d, want 5: %v", len(me.Errors), me.Errors)
	}
	for _, want := range []string{"store.backend", "timezone", "log.level", "log.format", "amqp.url"} {
		found := false
		for _, e := range me.Errors {
			if strings.Contains(e.Error(), want) {
				found = true
			}
		}
		if !found {
			t.Errorf("no error mentions %q", want)
		}
	}
}

func TestValidateBackendRequirements(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		dsn     string
		db      string
		wantErr bool
	}{
		{"memory needs nothing", BackendMemory, "", "", false},
		{"sqlite needs dsn", BackendSQLite, "", "", true},
		{"mongo needs database", BackendMongo, "mongodb://x", "", true},
		{"mongo ok", BackendMongo, "mongodb://x", "ecoseed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Store = StoreConfig{Backend: tt.backend, DSN: tt.dsn, Database: tt.db}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
