package ecoseed

import (
	"context"
	"strings"
	"sync"
)

// Member is the slice of an externally owned member record the ledger needs.
type Member struct {
	Ref         string
	DisplayName string
}

// MemberDirectory looks up members owned by the identity system.
// LookupMember returns ErrMemberNotFound for unknown refs.
type MemberDirectory interface {
	LookupMember(ctx context.Context, memberRef string) (*Member, error)
}

// OpenDirectory accepts every non-empty member ref and uses the ref as the
// display name.
type OpenDirectory struct{}

func (OpenDirectory) LookupMember(_ context.Context, memberRef string) (*Member, error) {
	ref := strings.TrimSpace(memberRef)
	if ref == "" {
		return nil, ErrMemberNotFound
	}
	return &Member{Ref: ref, DisplayName: ref}, nil
}

// MapDirectory is an in-memory directory keyed by member ref.
type MapDirectory struct {
	mu      sync.RWMutex
	members map[string]string
}

// NewMapDirectory builds a directory from ref to display name.
func NewMapDirectory(members map[string]string) *MapDirectory {
	d := &MapDirectory{members: make(map[string]string, len(members))}
	for ref, name := range members {
		d.members[ref] = name
	}
	return d
}

// Put adds or renames a member.
func (d *MapDirectory) Put(ref, displayName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[ref] = displayName
}

func (d *MapDirectory) LookupMember(_ context.Context, memberRef string) (*Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	name, ok := d.members[memberRef]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return &Member{Ref: memberRef, DisplayName: name}, nil
}
