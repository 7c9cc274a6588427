package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/profile"
)

func TestEntryFilter(t *testing.T) {
	tests := []struct {
		name string
		opts entry.ListOpts
		want bson.M
	}{
		{"member only", entry.ListOpts{}, bson.M{"member_ref": "m1"}},
		{"with category", entry.ListOpts{Category: category.Walking}, bson.M{"member_ref": "m1", "category": "WALKING"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entryFilter("m1", tt.opts)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("entryFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMigrationIndexes(t *testing.T) {
	idx := migrationIndexes()
	if len(idx[colProfiles]) != 1 {
		t.Errorf("profile indexes = %d, want 1", len(idx[colProfiles]))
	}
	if len(idx[colEntries]) != 3 {
		t.Errorf("entry indexes = %d, want 3", len(idx[colEntries]))
	}
}

func TestIsNoDocuments(t *testing.T) {
	if !isNoDocuments(fmt.Errorf("find: %w", mongo.ErrNoDocuments)) {
		t.Error("wrapped ErrNoDocuments not detected")
	}
	if isNoDocuments(errors.New("boom")) {
		t.Error("unrelated error reported as no documents")
	}
}

// openTestStore connects to ECOSEED_TEST_MONGO_URI, skipping when unset.
// The server must be a replica set for transactions.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("ECOSEED_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ECOSEED_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	drv := mongodriver.New()
	if err := drv.Open(ctx, uri, mongodriver.WithDatabase("ecoseed_test")); err != nil {
		t.Fatalf("open mongo: %v", err)
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

	member := "mongo-" + id.NewEntryID().String()
	if err := s.CreateProfile(ctx, profile.New(member, member)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateProfile(ctx, profile.New(member, member)); !errors.Is(err, ecoseed.ErrProfileExists) {
		t.Fatalf("duplicate CreateProfile = %v, want ErrProfileExists", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	earn := &entry.Entry{
		ID: id.NewEntryID(), MemberRef: member, Direction: entry.DirectionEarn,
		Category: category.Walking, Amount: 50, OccurredAt: at, CreatedAt: at,
	}
	p, err := s.PostEntry(ctx, earn, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.LastSequence != 1 || earn.BalanceAfter != 50 {
		t.Errorf("sequence = %d, balance after = %d, want 1, 50", p.LastSequence, earn.BalanceAfter)
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
	n, err := s.CountEntries(ctx, member, entry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 50 || n != 1 {
		t.Errorf("log sum = %d, entries = %d, want 50, 1", sum, n)
	}
}
