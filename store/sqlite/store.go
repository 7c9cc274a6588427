// Package sqlite implements store.Store on SQLite through grove.
//
// A posting runs in one transaction whose first statement is the guarded
// balance UPDATE, so the writer takes SQLite's write lock before reading
// anything. Concurrent writers queue on busy_timeout instead of failing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
	ledgerstore "github.com/xraph/ecoseed/store"
)

// DSN returns a modernc DSN for path with the pragmas the store expects.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("ecoseed/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("ecoseed/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Profile Store ====================

func (s *Store) GetProfile(ctx context.Context, memberRef string) (*profile.Profile, error) {
	m := new(profileModel)
	err := s.sdb.NewSelect(m).
		Where("member_ref = ?", memberRef).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ecoseed.ErrProfileNotFound
		}
		return nil, err
	}
	return fromProfileModel(m)
}

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.sdb.NewInsert(toProfileModel(p)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ecoseed.ErrProfileExists
		}
		return err
	}
	return nil
}

func (s *Store) RecordActivity(ctx context.Context, memberRef string, a profile.Activity) (*profile.Profile, error) {
	res, err := s.sdb.NewRaw(`
UPDATE ecoseed_profiles SET
    monthly_carbon_saved    = CASE WHEN counter_month = ? THEN monthly_carbon_saved + ? ELSE ? END,
    monthly_activity_count  = CASE WHEN counter_month = ? THEN monthly_activity_count + 1 ELSE 1 END,
    counter_month           = ?,
    lifetime_carbon_saved   = lifetime_carbon_saved + ?,
    lifetime_activity_count = lifetime_activity_count + 1,
    updated_at              = ?
WHERE member_ref = ?`,
		a.Month, a.CarbonSaved, a.CarbonSaved,
		a.Month,
		a.Month,
		a.CarbonSaved,
		now(),
		memberRef,
	).Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return nil, ecoseed.ErrProfileNotFound
	}
	return s.GetProfile(ctx, memberRef)
}

// ==================== Entry Store ====================

// PostEntry applies the guarded balance update and appends e in one
// transaction.
func (s *Store) PostEntry(ctx context.Context, e *entry.Entry, secondaryDelta int64) (*profile.Profile, error) {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ecoseed/sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	var balance, secondary, sequence int64
	err = tx.NewRaw(`
UPDATE ecoseed_profiles SET
    current_balance   = current_balance + ?,
    secondary_balance = secondary_balance + ?,
    last_sequence     = last_sequence + 1,
    updated_at        = ?
WHERE member_ref = ?
  AND current_balance + ? >= 0
  AND secondary_balance + ? >= 0
  AND current_balance <= ?
  AND secondary_balance <= ?
RETURNING current_balance, secondary_balance, last_sequence`,
		e.Amount, secondaryDelta, now(), e.MemberRef, e.Amount, secondaryDelta,
		ecoseed.BalanceCeiling(e.Amount), ecoseed.BalanceCeiling(secondaryDelta),
	).Scan(ctx, &balance, &secondary, &sequence)
	if err != nil {
		switch {
		case isNoRows(err):
			return nil, rejection(ctx, tx, e, secondaryDelta)
		case isCheckViolation(err):
			return nil, ecoseed.ErrInsufficientBalance
		}
		return nil, err
	}

	e.Sequence = sequence
	e.BalanceAfter = balance
	if _, err := tx.NewInsert(toEntryModel(e)).Exec(ctx); err != nil {
		return nil, fmt.Errorf("ecoseed/sqlite: append entry: %w", err)
	}

	m := new(profileModel)
	if err := tx.NewSelect(m).Where("member_ref = ?", e.MemberRef).Scan(ctx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ecoseed/sqlite: commit: %w", errors.Join(ecoseed.ErrTransactionFailed, err))
	}
	return fromProfileModel(m)
}

// rejection explains why the guarded UPDATE matched no row.
func rejection(ctx context.Context, tx *sqlitedriver.SqliteTx, e *entry.Entry, secondaryDelta int64) error {
	m := new(profileModel)
	if err := tx.NewSelect(m).Where("member_ref = ?", e.MemberRef).Scan(ctx); err != nil {
		if isNoRows(err) {
			return ecoseed.ErrProfileNotFound
		}
		return err
	}
	if _, _, err := ecoseed.ApplyPosting(m.CurrentBalance, m.SecondaryBalance, e.Amount, secondaryDelta); err != nil {
		return err
	}
	return ecoseed.ErrInsufficientBalance
}

func (s *Store) ListEntries(ctx context.Context, memberRef string, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).Where("member_ref = ?", memberRef)

	if opts.Category != "" {
		q = q.Where("category = ?", string(opts.Category))
	}
	q = q.OrderExpr("occurred_at DESC, sequence DESC")
	switch {
	case opts.Limit > 0:
		q = q.Limit(opts.Limit)
	case opts.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		q = q.Limit(math.MaxInt32)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return []*entry.Entry{}, nil
		}
		return nil, err
	}

	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountEntries(ctx context.Context, memberRef string, opts entry.ListOpts) (int64, error) {
	q := s.sdb.NewSelect((*entryModel)(nil)).Where("member_ref = ?", memberRef)
	if opts.Category != "" {
		q = q.Where("category = ?", string(opts.Category))
	}
	return q.Count(ctx)
}

func (s *Store) SumAmount(ctx context.Context, memberRef string, q entry.SumQuery) (int64, error) {
	where := []string{"member_ref = ?"}
	args := []any{memberRef}

	if q.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(q.Direction))
	}
	if !q.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, q.Until.UnixMilli())
	}

	var sum int64
	err := s.sdb.NewRaw(
		"SELECT COALESCE(SUM(amount), 0) FROM ecoseed_entries WHERE "+strings.Join(where, " AND "),
		args...,
	).Scan(ctx, &sum)
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, grove.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isCheckViolation(err error) bool {
	return strings.Contains(err.Error(), "CHECK constraint failed")
}
