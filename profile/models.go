// Package profile defines the per-member ledger profile.
package profile

import (
	"time"

	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/types"
)

// MonthKeyLayout formats the calendar month the monthly counters belong to.
const MonthKeyLayout = "2006-01"

// Profile holds a member's live balances and advisory counters.
//
// CurrentBalance and SecondaryBalance are authoritative. Point totals are
// always derived from the transaction log; the carbon and activity counters
// are display hints only.
type Profile struct {
	types.Entity

	ID        id.ProfileID `json:"id"`
	MemberRef string       `json:"member_ref"`
	Nickname  string       `json:"nickname"`

	CurrentBalance   int64 `json:"current_balance"`
	SecondaryBalance int64 `json:"secondary_balance"`

	// LastSequence is the sequence number of the newest log entry.
	LastSequence int64 `json:"last_sequence"`

	LifetimeCarbonSaved   float64 `json:"lifetime_carbon_saved"`
	LifetimeActivityCount int64   `json:"lifetime_activity_count"`
	MonthlyCarbonSaved    float64 `json:"monthly_carbon_saved"`
	MonthlyActivityCount  int64   `json:"monthly_activity_count"`
	CounterMonth          string  `json:"counter_month,omitempty"`
}

// Activity is one tracked eco activity applied to the advisory counters.
type Activity struct {
	CarbonSaved float64
	Month       string
}

// New builds a zero-balance profile for memberRef.
func New(memberRef, nickname string) *Profile {
	return &Profile{
		Entity:    types.NewEntity(),
		ID:        id.NewProfileID(),
		MemberRef: memberRef,
		Nickname:  nickname,
	}
}

// MonthKey returns the counter month key for t.
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyLayout)
}

// Apply folds a into the counters, resetting the monthly pair when the
// month has rolled over.
func (p *Profile) Apply(a Activity) {
	if p.CounterMonth != a.Month {
		p.MonthlyCarbonSaved = 0
		p.MonthlyActivityCount = 0
		p.CounterMonth = a.Month
	}
	p.LifetimeCarbonSaved += a.CarbonSaved
	p.LifetimeActivityCount++
	p.MonthlyCarbonSaved += a.CarbonSaved
	p.MonthlyActivityCount++
}

// Monthly returns the monthly counters as seen in month, which are zero
// when they were last written in an earlier month.
func (p *Profile) Monthly(month string) (carbon float64, count int64) {
	if p.CounterMonth != month {
		return 0, 0
	}
	return p.MonthlyCarbonSaved, p.MonthlyActivityCount
}
