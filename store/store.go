package store

import (
	"context"

	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
)

// Store is the unified storage interface for the Eco-Seed ledger.
// Methods are declared explicitly rather than by embedding the profile and
// entry sub-interfaces so every backend lists its full surface in one place.
type Store interface {
	// Profile methods
	GetProfile(ctx context.Context, memberRef string) (*profile.Profile, error)
	CreateProfile(ctx context.Context, p *profile.Profile) error
	RecordActivity(ctx context.Context, memberRef string, a profile.Activity) (*profile.Profile, error)

	// Entry methods
	PostEntry(ctx context.Context, e *entry.Entry, secondaryDelta int64) (*profile.Profile, error)
	ListEntries(ctx context.Context, memberRef string, opts entry.ListOpts) ([]*entry.Entry, error)
	CountEntries(ctx context.Context, memberRef string, opts entry.ListOpts) (int64, error)
	SumAmount(ctx context.Context, memberRef string, q entry.SumQuery) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ profile.Store = (Store)(nil)
	_ entry.Store   = (Store)(nil)
)
