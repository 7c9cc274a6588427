// Package entry defines the append-only Eco-Seed transaction log.
package entry

import (
	"errors"
	"time"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/id"
)

// Direction classifies a balance-affecting event.
type Direction string

const (
	DirectionEarn    Direction = "EARN"
	DirectionUse     Direction = "USE"
	DirectionConvert Direction = "CONVERT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionEarn, DirectionUse, DirectionConvert:
		return true
	}
	return false
}

// Sign is +1 for credits and -1 for debits.
func (d Direction) Sign() int64 {
	if d == DirectionEarn {
		return 1
	}
	return -1
}

// Entry is one immutable log record.
//
// Amount is signed: EARN is positive, USE and CONVERT are negative.
// BalanceAfter is the member's primary balance right after this entry
// was applied, and equals the running sum of Amount up to Sequence.
type Entry struct {
	ID           id.EntryID        `json:"id"`
	MemberRef    string            `json:"member_ref"`
	Sequence     int64             `json:"sequence"`
	Direction    Direction         `json:"direction"`
	Category     category.Category `json:"category"`
	Description  string            `json:"description"`
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
	OccurredAt   time.Time         `json:"occurred_at"`
	CreatedAt    time.Time         `json:"created_at"`
}

var (
	errDirection = errors.New("entry: unknown direction")
	errCategory  = errors.New("entry: unknown category")
	errSign      = errors.New("entry: amount sign does not match direction")
	errMember    = errors.New("entry: member ref is required")
)

// Validate checks the structural rules of an entry before it is posted.
func (e *Entry) Validate() error {
	switch {
	case e.MemberRef == "":
		return errMember
	case !e.Direction.Valid():
		return errDirection
	case !e.Category.Valid():
		return errCategory
	case e.Amount == 0 || (e.Amount > 0) != (e.Direction.Sign() > 0):
		return errSign
	}
	return nil
}

// Magnitude returns the absolute points delta.
func (e *Entry) Magnitude() int64 {
	if e.Amount < 0 {
		return -e.Amount
	}
	return e.Amount
}

// ListOpts filters and pages log reads. Results are always newest first.
type ListOpts struct {
	Category category.Category
	Limit    int
	Offset   int
}

// SumQuery selects the entries summed by an aggregation.
// Empty Direction matches all directions; zero times are unbounded.
type SumQuery struct {
	Direction Direction
	Since     time.Time
	Until     time.Time
}

// Matches reports whether e falls inside q.
func (q SumQuery) Matches(e *Entry) bool {
	if q.Direction != "" && e.Direction != q.Direction {
		return false
	}
	if !q.Since.IsZero() && e.OccurredAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !e.OccurredAt.Before(q.Until) {
		return false
	}
	return true
}

// Newer orders entries newest first: by OccurredAt, then by Sequence.
func Newer(a, b *Entry) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.Sequence > b.Sequence
}
