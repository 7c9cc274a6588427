package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	asJSON = false
	cfgFile = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("ECOSEED_STORE", config.BackendSQLite)
	t.Setenv("ECOSEED_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("ECOSEED_LOG_LEVEL", "error")
}

func TestEarnThenBalance(t *testing.T) {
	useSQLite(t)

	if _, err := run(t, "earn", "alice", "walking", "30", "-d", "morning walk"); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if _, err := run(t, "spend", "alice", "ENVIRONMENT_DONATION", "10"); err != nil {
		t.Fatalf("spend: %v", err)
	}

	out, err := run(t, "balance", "alice", "--json")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	var s ecoseed.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if s.CurrentBalance != 20 || s.TotalEarned != 30 || s.TotalUsed != 10 {
		t.Errorf("summary = %+v, want balance 20 earned 30 used 10", s)
	}
}

func TestHistoryAndVerify(t *testing.T) {
	useSQLite(t)

	for _, amt := range []string{"5", "7"} {
		if _, err := run(t, "earn", "bob", "DAILY_QUIZ", amt); err != nil {
			t.Fatalf("earn: %v", err)
		}
	}
	if _, err := run(t, "convert", "bob", "4"); err != nil {
		t.Fatalf("convert: %v", err)
	}

	out, err := run(t, "history", "bob")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "page 1 of 1 (3 entries)") {
		t.Errorf("history output = %q", out)
	}

	out, err = run(t, "history", "bob", "--category", "daily_quiz", "--json")
	if err != nil {
		t.Fatalf("history by category: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil || len(entries) != 2 {
		t.Errorf("category history = %q (%v), want 2 entries", out, err)
	}

	out, err = run(t, "verify", "bob")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "balance=8") || !strings.Contains(out, "consistent=true") {
		t.Errorf("verify output = %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	useSQLite(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown category", []string{"earn", "carol", "LOTTERY", "5"}},
		{"bad amount", []string{"earn", "carol", "WALKING", "five"}},
		{"spend on earn category", []string{"spend", "carol", "WALKING", "1"}},
		{"insufficient", []string{"convert", "carol", "100"}},
		{"missing args", []string{"balance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v = nil error, want error", tt.args)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	out, err := run(t, "categories")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	for _, want := range []string{"WALKING", "HANA_MONEY_CONVERSION", "ENVIRONMENT_DONATION"} {
		if !strings.Contains(out, want) {
			t.Errorf("categories output missing %s", want)
		}
	}
}

func TestInvalidConfigListsEveryProblem(t *testing.T) {
	t.Setenv("ECOSEED_STORE", "redis")
	t.Setenv("ECOSEED_LOG_FORMAT", "xml")

	_, err := run(t, "migrate")
	if err == nil {
		t.Fatal("migrate = nil error, want config error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") ||
		!strings.Contains(msg, "store.backend") || !strings.Contains(msg, "log.format") {
		t.Errorf("error = %q", msg)
	}
}
