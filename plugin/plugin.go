// Package plugin provides an extensible plugin system for the Eco-Seed ledger.
// Plugins hook into ledger lifecycle events. A plugin failure is logged and
// never fails the ledger operation that triggered it.
package plugin

import (
	"context"

	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Profile hooks
// ──────────────────────────────────────────────────

// OnProfileCreated is called after a profile is lazily created.
type OnProfileCreated interface {
	Plugin
	OnProfileCreated(ctx context.Context, p *profile.Profile) error
}

// OnActivityRecorded is called after the advisory counters change.
type OnActivityRecorded interface {
	Plugin
	OnActivityRecorded(ctx context.Context, p *profile.Profile, a profile.Activity) error
}

// ──────────────────────────────────────────────────
// Balance mutation hooks
// ──────────────────────────────────────────────────

// OnSeedsEarned is called after an EARN entry commits.
type OnSeedsEarned interface {
	Plugin
	OnSeedsEarned(ctx context.Context, e *entry.Entry, p *profile.Profile) error
}

// OnSeedsSpent is called after a USE entry commits.
type OnSeedsSpent interface {
	Plugin
	OnSeedsSpent(ctx context.Context, e *entry.Entry, p *profile.Profile) error
}

// OnSeedsConverted is called after a CONVERT entry commits.
type OnSeedsConverted interface {
	Plugin
	OnSeedsConverted(ctx context.Context, e *entry.Entry, p *profile.Profile) error
}

// OnMutationFailed is called when a balance mutation is rejected or rolled back.
type OnMutationFailed interface {
	Plugin
	OnMutationFailed(ctx context.Context, op, memberRef string, err error) error
}
