// Package memory provides an in-process store.Store.
//
// Each member has its own lock, so writers for different members never
// contend. A posting updates the profile and appends the entry while
// holding that lock, and readers take the same lock for reading, so no
// reader ever sees one half of a posting.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
	ledgerstore "github.com/xraph/ecoseed/store"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

type memberLedger struct {
	mu      sync.RWMutex
	profile *profile.Profile
	entries []*entry.Entry
}

type Store struct {
	mu      sync.RWMutex
	members map[string]*memberLedger
	closed  atomic.Bool
}

func New() *Store {
	return &Store{
		members: make(map[string]*memberLedger),
	}
}

func (s *Store) member(memberRef string) (*memberLedger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberRef]
	return m, ok
}

// ==================== Profile Store ====================

func (s *Store) GetProfile(_ context.Context, memberRef string) (*profile.Profile, error) {
	if s.closed.Load() {
		return nil, ecoseed.ErrStoreClosed
	}
	m, ok := s.member(memberRef)
	if !ok {
		return nil, ecoseed.ErrProfileNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyProfile(m.profile), nil
}

func (s *Store) CreateProfile(_ context.Context, p *profile.Profile) error {
	if s.closed.Load() {
		return ecoseed.ErrStoreClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[p.MemberRef]; exists {
		return ecoseed.ErrProfileExists
	}
	s.members[p.MemberRef] = &memberLedger{profile: copyProfile(p)}
	return nil
}

func (s *Store) RecordActivity(_ context.Context, memberRef string, a profile.Activity) (*profile.Profile, error) {
	if s.closed.Load() {
		return nil, ecoseed.ErrStoreClosed
	}
	m, ok := s.member(memberRef)
	if !ok {
		return nil, ecoseed.ErrProfileNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile.Apply(a)
	m.profile.Touch(now())
	return copyProfile(m.profile), nil
}

// ==================== Entry Store ====================

func (s *Store) PostEntry(_ context.Context, e *entry.Entry, secondaryDelta int64) (*profile.Profile, error) {
	if s.closed.Load() {
		return nil, ecoseed.ErrStoreClosed
	}
	m, ok := s.member(e.MemberRef)
	if !ok {
		return nil, ecoseed.ErrProfileNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance, secondary, err := ecoseed.ApplyPosting(m.profile.CurrentBalance, m.profile.SecondaryBalance, e.Amount, secondaryDelta)
	if err != nil {
		return nil, err
	}

	e.Sequence = m.profile.LastSequence + 1
	e.BalanceAfter = balance
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}

	stored := *e
	m.entries = append(m.entries, &stored)
	m.profile.CurrentBalance = balance
	m.profile.SecondaryBalance = secondary
	m.profile.LastSequence = e.Sequence
	m.profile.Touch(now())

	return copyProfile(m.profile), nil
}

func (s *Store) ListEntries(_ context.Context, memberRef string, opts entry.ListOpts) ([]*entry.Entry, error) {
	if s.closed.Load() {
		return nil, ecoseed.ErrStoreClosed
	}
	m, ok := s.member(memberRef)
	if !ok {
		return []*entry.Entry{}, nil
	}

	m.mu.RLock()
	matched := make([]*entry.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if opts.Category != "" && e.Category != opts.Category {
			continue
		}
		c := *e
		matched = append(matched, &c)
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return entry.Newer(matched[i], matched[j]) })

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return []*entry.Entry{}, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (s *Store) CountEntries(_ context.Context, memberRef string, opts entry.ListOpts) (int64, error) {
	if s.closed.Load() {
		return 0, ecoseed.ErrStoreClosed
	}
	m, ok := s.member(memberRef)
	if !ok {
		return 0, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.entries {
		if opts.Category == "" || e.Category == opts.Category {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumAmount(_ context.Context, memberRef string, q entry.SumQuery) (int64, error) {
	if s.closed.Load() {
		return 0, ecoseed.ErrStoreClosed
	}
	m, ok := s.member(memberRef)
	if !ok {
		return 0, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum int64
	for _, e := range m.entries {
		if q.Matches(e) {
			sum += e.Amount
		}
	}
	return sum, nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return ecoseed.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func copyProfile(p *profile.Profile) *profile.Profile {
	c := *p
	return &c
}

func now() time.Time {
	return time.Now().UTC()
}
