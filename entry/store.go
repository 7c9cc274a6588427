package entry

import (
	"context"

	"github.com/xraph/ecoseed/profile"
)

// Store persists the transaction log. There are no update or delete methods.
type Store interface {
	// PostEntry applies e.Amount to the member's primary balance and
	// secondaryDelta to the secondary balance, then appends e, as one
	// atomic unit. The store assigns e.Sequence and e.BalanceAfter. A
	// resulting negative balance aborts the unit with an insufficient
	// balance error.
	PostEntry(ctx context.Context, e *Entry, secondaryDelta int64) (*profile.Profile, error)
	ListEntries(ctx context.Context, memberRef string, opts ListOpts) ([]*Entry, error)
	CountEntries(ctx context.Context, memberRef string, opts ListOpts) (int64, error)
	SumAmount(ctx context.Context, memberRef string, q SumQuery) (int64, error)
}
