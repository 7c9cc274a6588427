// Package postgres implements store.Store on PostgreSQL through grove.
//
// A posting locks the member's profile row with SELECT ... FOR UPDATE,
// checks the balance, then writes the profile and appends the entry before
// committing. Writers for the same member serialize on the row lock; other
// members are untouched.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the postgres migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
	ledgerstore "github.com/xraph/ecoseed/store"
)

// PostgreSQL error codes the store translates.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("ecoseed/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("ecoseed/postgres: migration failed: %w", err)
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
	err := s.pg.NewSelect(m).
		Where("member_ref = $1", memberRef).
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
	_, err := s.pg.NewInsert(toProfileModel(p)).Exec(ctx)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return ecoseed.ErrProfileExists
		}
		return err
	}
	return nil
}

func (s *Store) RecordActivity(ctx context.Context, memberRef string, a profile.Activity) (*profile.Profile, error) {
	m := new(profileModel)
	err := s.pg.NewRaw(`
UPDATE ecoseed_profiles SET
    monthly_carbon_saved    = CASE WHEN counter_month = $1 THEN monthly_carbon_saved + $2 ELSE $2 END,
    monthly_activity_count  = CASE WHEN counter_month = $1 THEN monthly_activity_count + 1 ELSE 1 END,
    counter_month           = $1,
    lifetime_carbon_saved   = lifetime_carbon_saved + $2,
    lifetime_activity_count = lifetime_activity_count + 1,
    updated_at              = $3
WHERE member_ref = $4
RETURNING id, member_ref, nickname, current_balance, secondary_balance, last_sequence,
          lifetime_carbon_saved, lifetime_activity_count, monthly_carbon_saved,
          monthly_activity_count, counter_month, created_at, updated_at`,
		a.Month, a.CarbonSaved, now(), memberRef,
	).Scan(ctx, m)
	if err != nil {
		if isNoRows(err) {
			return nil, ecoseed.ErrProfileNotFound
		}
		return nil, err
	}
	return fromProfileModel(m)
}

// ==================== Entry Store ====================

// PostEntry applies the guarded balance update and appends e in one
// transaction under the profile row lock.
func (s *Store) PostEntry(ctx context.Context, e *entry.Entry, secondaryDelta int64) (*profile.Profile, error) {
	tx, err := s.pg.BeginTxQuery(ctx, &driver.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("ecoseed/postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	m := new(profileModel)
	err = tx.NewSelect(m).
		Where("member_ref = $1", e.MemberRef).
		ForUpdate().
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ecoseed.ErrProfileNotFound
		}
		return nil, err
	}

	balance, secondary, err := ecoseed.ApplyPosting(m.CurrentBalance, m.SecondaryBalance, e.Amount, secondaryDelta)
	if err != nil {
		return nil, err
	}

	m.CurrentBalance = balance
	m.SecondaryBalance = secondary
	m.LastSequence++
	m.UpdatedAt = now()

	_, err = tx.NewRaw(`
UPDATE ecoseed_profiles
SET current_balance = $1, secondary_balance = $2, last_sequence = $3, updated_at = $4
WHERE member_ref = $5`,
		m.CurrentBalance, m.SecondaryBalance, m.LastSequence, m.UpdatedAt, e.MemberRef,
	).Exec(ctx)
	if err != nil {
		if pgCode(err) == codeCheckViolation {
			return nil, ecoseed.ErrInsufficientBalance
		}
		return nil, err
	}

	e.Sequence = m.LastSequence
	e.BalanceAfter = balance
	if _, err := tx.NewInsert(toEntryModel(e)).Exec(ctx); err != nil {
		return nil, fmt.Errorf("ecoseed/postgres: append entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ecoseed/postgres: commit: %w", errors.Join(ecoseed.ErrTransactionFailed, err))
	}
	return fromProfileModel(m)
}

func (s *Store) ListEntries(ctx context.Context, memberRef string, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel
	q := s.pg.NewSelect(&models).Where("member_ref = $1", memberRef)

	if opts.Category != "" {
		q = q.Where("category = $2", string(opts.Category))
	}
	q = q.OrderExpr("occurred_at DESC, sequence DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
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
	q := s.pg.NewSelect((*entryModel)(nil)).Where("member_ref = $1", memberRef)
	if opts.Category != "" {
		q = q.Where("category = $2", string(opts.Category))
	}
	return q.Count(ctx)
}

func (s *Store) SumAmount(ctx context.Context, memberRef string, q entry.SumQuery) (int64, error) {
	where := []string{"member_ref = $1"}
	args := []any{memberRef}
	argIdx := 2

	if q.Direction != "" {
		where = append(where, fmt.Sprintf("direction = $%d", argIdx))
		args = append(args, string(q.Direction))
		argIdx++
	}
	if !q.Since.IsZero() {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, q.Since.UTC())
		argIdx++
	}
	if !q.Until.IsZero() {
		where = append(where, fmt.Sprintf("occurred_at < $%d", argIdx))
		args = append(args, q.Until.UTC())
	}

	var sum int64
	err := s.pg.NewRaw(
		"SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ecoseed_entries WHERE "+strings.Join(where, " AND "),
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
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, grove.ErrNoRows)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
