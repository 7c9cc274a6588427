package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/profile"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		noRows   bool
		wantCode string
	}{
		{"pgx no rows", pgx.ErrNoRows, true, ""},
		{"wrapped sql no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), true, ""},
		{"unique violation", &pgconn.PgError{Code: codeUniqueViolation}, false, codeUniqueViolation},
		{"wrapped check violation", fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeCheckViolation}), false, codeCheckViolation},
		{"other", errors.New("boom"), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNoRows(tt.err); got != tt.noRows {
				t.Errorf("isNoRows = %v, want %v", got, tt.noRows)
			}
			if got := pgCode(tt.err); got != tt.wantCode {
				t.Errorf("pgCode = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

// openTestStore connects to ECOSEED_TEST_POSTGRES_DSN, skipping when unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ECOSEED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ECOSEED_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	drv := pgdriver.New()
	if err := drv.Open(ctx, dsn); err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatalf("grove.Open: %v", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostEntryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	member := "pg-" + id.NewEntryID().String()
	if err := s.CreateProfile(ctx, profile.New(member, member)); err != nil {
		t.Fatal(err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	earn := &entry.Entry{
		ID: id.NewEntryID(), MemberRef: member, Direction: entry.DirectionEarn,
		Category: category.Walking, Amount: 50, OccurredAt: at, CreatedAt: at,
	}
	if _, err := s.PostEntry(ctx, earn, 0); err != nil {
		t.Fatal(err)
	}

	conv := &entry.Entry{
		ID: id.NewEntryID(), MemberRef: member, Direction: entry.DirectionConvert,
		Category: category.HanaMoneyConversion, Amount: -80, OccurredAt: at, CreatedAt: at,
	}
	if _, err := s.PostEntry(ctx, conv, 80); !errors.Is(err, ecoseed.ErrInsufficientBalance) {
		t.Fatalf("overdraw = %v, want ErrInsufficientBalance", err)
	}

	huge := &entry.Entry{
		ID: id.NewEntryID(), MemberRef: member, Direction: entry.DirectionEarn,
		Category: category.Walking, Amount: math.MaxInt64 - 49, OccurredAt: at, CreatedAt: at,
	}
	if _, err := s.PostEntry(ctx, huge, 0); !errors.Is(err, ecoseed.ErrBalanceOverflow) {
		t.Fatalf("overflowing earn = %v, want ErrBalanceOverflow", err)
	}

	sum, err := s.SumAmount(ctx, member, entry.SumQuery{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.GetProfile(ctx, member)
	if err != nil {
		t.Fatal(err)
	}
	if p.CurrentBalance != 50 || sum != 50 {
		t.Errorf("balance = %d, log sum = %d, want 50, 50", p.CurrentBalance, sum)
	}
}
