package profile

import "context"

// Store persists ledger profiles. Balance fields are only written through
// the entry posting path of the unified store.
type Store interface {
	GetProfile(ctx context.Context, memberRef string) (*Profile, error)
	CreateProfile(ctx context.Context, p *Profile) error
	RecordActivity(ctx context.Context, memberRef string, a Activity) (*Profile, error)
}
