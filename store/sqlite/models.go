package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/profile"
	"github.com/xraph/ecoseed/types"
)

// ==================== Profile models ====================

type profileModel struct {
	grove.BaseModel `grove:"table:ecoseed_profiles"`

	ID                    string    `grove:"id,pk"`
	MemberRef             string    `grove:"member_ref"`
	Nickname              string    `grove:"nickname"`
	CurrentBalance        int64     `grove:"current_balance"`
	SecondaryBalance      int64     `grove:"secondary_balance"`
	LastSequence          int64     `grove:"last_sequence"`
	LifetimeCarbonSaved   float64   `grove:"lifetime_carbon_saved"`
	LifetimeActivityCount int64     `grove:"lifetime_activity_count"`
	MonthlyCarbonSaved    float64   `grove:"monthly_carbon_saved"`
	MonthlyActivityCount  int64     `grove:"monthly_activity_count"`
	CounterMonth          string    `grove:"counter_month"`
	CreatedAt             time.Time `grove:"created_at"`
	UpdatedAt             time.Time `grove:"updated_at"`
}

func toProfileModel(p *profile.Profile) *profileModel {
	return &profileModel{
		ID:                    p.ID.String(),
		MemberRef:             p.MemberRef,
		Nickname:              p.Nickname,
		CurrentBalance:        p.CurrentBalance,
		SecondaryBalance:      p.SecondaryBalance,
		LastSequence:          p.LastSequence,
		LifetimeCarbonSaved:   p.LifetimeCarbonSaved,
		LifetimeActivityCount: p.LifetimeActivityCount,
		MonthlyCarbonSaved:    p.MonthlyCarbonSaved,
		MonthlyActivityCount:  p.MonthlyActivityCount,
		CounterMonth:          p.CounterMonth,
		CreatedAt:             p.CreatedAt.UTC(),
		UpdatedAt:             p.UpdatedAt.UTC(),
	}
}

func fromProfileModel(m *profileModel) (*profile.Profile, error) {
	profileID, err := id.ParseProfileID(m.ID)
	if err != nil {
		return nil, err
	}

	return &profile.Profile{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                    profileID,
		MemberRef:             m.MemberRef,
		Nickname:              m.Nickname,
		CurrentBalance:        m.CurrentBalance,
		SecondaryBalance:      m.SecondaryBalance,
		LastSequence:          m.LastSequence,
		LifetimeCarbonSaved:   m.LifetimeCarbonSaved,
		LifetimeActivityCount: m.LifetimeActivityCount,
		MonthlyCarbonSaved:    m.MonthlyCarbonSaved,
		MonthlyActivityCount:  m.MonthlyActivityCount,
		CounterMonth:          m.CounterMonth,
	}, nil
}

// ==================== Entry models ====================

// entryModel stores occurred_at as Unix milliseconds so range filters and
// ordering are plain integer comparisons.
type entryModel struct {
	grove.BaseModel `grove:"table:ecoseed_entries"`

	ID           string    `grove:"id,pk"`
	MemberRef    string    `grove:"member_ref"`
	Sequence     int64     `grove:"sequence"`
	Direction    string    `grove:"direction"`
	Category     string    `grove:"category"`
	Description  string    `grove:"description"`
	Amount       int64     `grove:"amount"`
	BalanceAfter int64     `grove:"balance_after"`
	OccurredAt   int64     `grove:"occurred_at"`
	CreatedAt    time.Time `grove:"created_at"`
}

func toEntryModel(e *entry.Entry) *entryModel {
	return &entryModel{
		ID:           e.ID.String(),
		MemberRef:    e.MemberRef,
		Sequence:     e.Sequence,
		Direction:    string(e.Direction),
		Category:     string(e.Category),
		Description:  e.Description,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		OccurredAt:   e.OccurredAt.UnixMilli(),
		CreatedAt:    e.CreatedAt.UTC(),
	}
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}

	return &entry.Entry{
		ID:           entryID,
		MemberRef:    m.MemberRef,
		Sequence:     m.Sequence,
		Direction:    entry.Direction(m.Direction),
		Category:     category.Category(m.Category),
		Description:  m.Description,
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		OccurredAt:   time.UnixMilli(m.OccurredAt).UTC(),
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}
