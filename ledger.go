package ecoseed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/level"
	"github.com/xraph/ecoseed/plugin"
	"github.com/xraph/ecoseed/profile"
	"github.com/xraph/ecoseed/store"
)

const (
	// DefaultPageSize is the history page size used when none is requested.
	DefaultPageSize = 20
	// MaxPageSize caps a single history page.
	MaxPageSize = 100
)

// Ledger is the Eco-Seed points engine. It is the only writer of balances
// and log entries; every mutation is a single atomic store posting.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	members MemberDirectory

	clock  func() time.Time
	loc    *time.Location
	levels level.Table

	defaultPageSize int
	maxPageSize     int
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		members:         OpenDirectory{},
		clock:           time.Now,
		loc:             time.UTC,
		levels:          level.Default,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.defaultPageSize > l.maxPageSize {
		l.defaultPageSize = l.maxPageSize
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		if err := l.plugins.Register(p); err != nil {
			l.logger.Warn("plugin registration skipped", "plugin", p.Name(), "error", err)
		}
	}
}

// WithMemberDirectory sets the collaborator used to look up members when a
// profile is created.
func WithMemberDirectory(d MemberDirectory) Option {
	return func(l *Ledger) {
		if d != nil {
			l.members = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithLocation sets the time zone that defines calendar months.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithLevels replaces the eco level table.
func WithLevels(t level.Table) Option {
	return func(l *Ledger) {
		if len(t) > 0 {
			l.levels = t.Sorted()
		}
	}
}

// WithDefaultPageSize sets the history page size used when none is requested.
func WithDefaultPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.defaultPageSize = n
		}
	}
}

// WithMaxPageSize caps history page sizes.
func WithMaxPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxPageSize = n
		}
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("ecoseed ledger started",
		"plugins", l.plugins.Count(),
		"location", l.loc.String(),
	)
	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Categories returns the category registry in display order.
func (l *Ledger) Categories() []category.Info { return category.All() }

// Levels returns the eco level table.
func (l *Ledger) Levels() level.Table { return l.levels }

// Ping checks the store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.storeErr("ping", l.store.Ping(ctx))
}

// ──────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────

// GetOrCreateProfile returns the member's profile, creating a zero-balance
// one on first access. The nickname comes from the member directory.
func (l *Ledger) GetOrCreateProfile(ctx context.Context, memberRef string) (*profile.Profile, error) {
	memberRef, err := normalizeMember(memberRef)
	if err != nil {
		return nil, err
	}

	p, err := l.store.GetProfile(ctx, memberRef)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, l.storeErr("get profile", err)
	}

	m, err := l.members.LookupMember(ctx, memberRef)
	if err != nil {
		return nil, err
	}

	p = profile.New(memberRef, m.DisplayName)
	if err := l.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, ErrProfileExists) {
			// Lost a creation race; the winner's row is the profile.
			p, err = l.store.GetProfile(ctx, memberRef)
			if err != nil {
				return nil, l.storeErr("get profile", err)
			}
			return p, nil
		}
		return nil, l.storeErr("create profile", err)
	}

	l.logger.Info("ledger profile created", "member", memberRef, "profile_id", p.ID.String())
	l.plugins.EmitProfileCreated(ctx, p)
	return p, nil
}

// RecordActivity adds one tracked activity to the member's advisory
// counters. The monthly pair resets when the calendar month has changed.
func (l *Ledger) RecordActivity(ctx context.Context, memberRef string, carbonSaved float64) (*profile.Profile, error) {
	if carbonSaved < 0 {
		return nil, ValidationError{Field: "carbon_saved", Message: "must not be negative"}
	}
	if _, err := l.GetOrCreateProfile(ctx, memberRef); err != nil {
		return nil, err
	}

	a := profile.Activity{
		CarbonSaved: carbonSaved,
		Month:       profile.MonthKey(l.localNow()),
	}
	p, err := l.store.RecordActivity(ctx, strings.TrimSpace(memberRef), a)
	if err != nil {
		return nil, l.storeErr("record activity", err)
	}

	l.plugins.EmitActivityRecorded(ctx, p, a)
	return p, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func normalizeMember(memberRef string) (string, error) {
	ref := strings.TrimSpace(memberRef)
	if ref == "" {
		return "", ValidationError{Field: "member", Message: "member reference is required"}
	}
	return ref, nil
}

// storeErr leaves classified errors alone and wraps everything else as a
// retryable persistence failure.
func (l *Ledger) storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (l *Ledger) now() time.Time { return l.clock().UTC() }

func (l *Ledger) localNow() time.Time { return l.clock().In(l.loc) }

// monthBounds returns [start, end) of the calendar month containing t in
// the ledger's location.
func (l *Ledger) monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(l.loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, l.loc)
	return start, start.AddDate(0, 1, 0)
}
