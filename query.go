package ecoseed

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/level"
	"github.com/xraph/ecoseed/profile"
)

// Summary is a member's balance view. The totals are recomputed from the
// transaction log on every call; the balances come from the profile.
type Summary struct {
	MemberRef          string `json:"member_ref"`
	TotalEarned        int64  `json:"total_earned"`
	CurrentBalance     int64  `json:"current_balance"`
	TotalUsed          int64  `json:"total_used"`
	TotalConverted     int64  `json:"total_converted"`
	CurrentMonthEarned int64  `json:"current_month_earned"`
	SecondaryBalance   int64  `json:"secondary_balance"`
}

// PageRequest selects one zero-based page of history.
type PageRequest struct {
	Page int
	Size int
}

// HistoryPage is one page of log entries, newest first.
type HistoryPage struct {
	Entries       []*entry.Entry `json:"entries"`
	TotalElements int64          `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	First         bool           `json:"first"`
	Last          bool           `json:"last"`
}

// Stats combines the advisory activity counters with log-derived totals.
type Stats struct {
	Profile              *profile.Profile `json:"profile"`
	TotalEarned          int64            `json:"total_earned"`
	MonthlyCarbonSaved   float64          `json:"monthly_carbon_saved"`
	MonthlyActivityCount int64            `json:"monthly_activity_count"`
	Level                level.Progress   `json:"level"`
}

// Verification is the result of checking a profile against its log.
type Verification struct {
	MemberRef        string `json:"member_ref"`
	Balance          int64  `json:"balance"`
	LogSum           int64  `json:"log_sum"`
	LastBalanceAfter int64  `json:"last_balance_after"`
	Entries          int64  `json:"entries"`
	Consistent       bool   `json:"consistent"`
}

// summaryAttempts bounds how often Summary retakes the aggregations when
// postings keep landing while it reads.
const summaryAttempts = 5

var errSummaryContention = errors.New("log kept changing while summarizing")

// Summary returns the member's balances together with totals aggregated
// from the log. The four aggregations run concurrently.
func (l *Ledger) Summary(ctx context.Context, memberRef string) (*Summary, error) {
	p, err := l.GetOrCreateProfile(ctx, memberRef)
	if err != nil {
		return nil, err
	}
	return l.summarize(ctx, p)
}

// summarize aggregates the log and re-reads the profile afterwards. Every
// posting moves LastSequence, so an unchanged sequence means the sums and
// the balances describe the same state.
func (l *Ledger) summarize(ctx context.Context, p *profile.Profile) (*Summary, error) {
	for range summaryAttempts {
		s, err := l.totals(ctx, p.MemberRef)
		if err != nil {
			return nil, err
		}
		after, err := l.store.GetProfile(ctx, p.MemberRef)
		if err != nil {
			return nil, l.storeErr("get profile", err)
		}
		if after.LastSequence == p.LastSequence {
			s.CurrentBalance = after.CurrentBalance
			s.SecondaryBalance = after.SecondaryBalance
			return s, nil
		}
		p = after
	}
	return nil, &PersistenceError{Op: "summary", Err: errSummaryContention}
}

func (l *Ledger) totals(ctx context.Context, memberRef string) (*Summary, error) {
	var earned, used, converted, monthEarned int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		earned, err = l.SumEarned(gctx, memberRef)
		return err
	})
	g.Go(func() (err error) {
		used, err = l.SumUsed(gctx, memberRef)
		return err
	})
	g.Go(func() (err error) {
		converted, err = l.SumConverted(gctx, memberRef)
		return err
	})
	g.Go(func() (err error) {
		monthEarned, err = l.SumCurrentMonthEarned(gctx, memberRef)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Summary{
		MemberRef:          memberRef,
		TotalEarned:        earned,
		TotalUsed:          abs(used),
		TotalConverted:     abs(converted),
		CurrentMonthEarned: monthEarned,
	}, nil
}

// SumEarned is the sum of EARN amounts in the member's log.
func (l *Ledger) SumEarned(ctx context.Context, memberRef string) (int64, error) {
	return l.sum(ctx, memberRef, entry.SumQuery{Direction: entry.DirectionEarn})
}

// SumUsed is the sum of USE amounts. It is never positive.
func (l *Ledger) SumUsed(ctx context.Context, memberRef string) (int64, error) {
	return l.sum(ctx, memberRef, entry.SumQuery{Direction: entry.DirectionUse})
}

// SumConverted is the sum of CONVERT amounts. It is never positive.
func (l *Ledger) SumConverted(ctx context.Context, memberRef string) (int64, error) {
	return l.sum(ctx, memberRef, entry.SumQuery{Direction: entry.DirectionConvert})
}

// SumCurrentMonthEarned is the sum of EARN amounts whose OccurredAt falls in
// the current calendar month of the ledger's location.
func (l *Ledger) SumCurrentMonthEarned(ctx context.Context, memberRef string) (int64, error) {
	start, end := l.monthBounds(l.clock())
	return l.sum(ctx, memberRef, entry.SumQuery{
		Direction: entry.DirectionEarn,
		Since:     start,
		Until:     end,
	})
}

func (l *Ledger) sum(ctx context.Context, memberRef string, q entry.SumQuery) (int64, error) {
	ref, err := normalizeMember(memberRef)
	if err != nil {
		return 0, err
	}
	n, err := l.store.SumAmount(ctx, ref, q)
	if err != nil {
		return 0, l.storeErr("sum "+string(q.Direction), err)
	}
	return n, nil
}

// History returns one page of the member's log, newest first.
func (l *Ledger) History(ctx context.Context, memberRef string, req PageRequest) (*HistoryPage, error) {
	ref, err := normalizeMember(memberRef)
	if err != nil {
		return nil, err
	}
	if req.Page < 0 {
		return nil, ValidationError{Field: "page", Message: "must not be negative"}
	}
	size := req.Size
	switch {
	case size <= 0:
		size = l.defaultPageSize
	case size > l.maxPageSize:
		size = l.maxPageSize
	}

	total, err := l.store.CountEntries(ctx, ref, entry.ListOpts{})
	if err != nil {
		return nil, l.storeErr("count entries", err)
	}
	entries, err := l.store.ListEntries(ctx, ref, entry.ListOpts{
		Limit:  size,
		Offset: req.Page * size,
	})
	if err != nil {
		return nil, l.storeErr("list entries", err)
	}

	pages := int((total + int64(size) - 1) / int64(size))
	return &HistoryPage{
		Entries:       entries,
		TotalElements: total,
		TotalPages:    pages,
		Page:          req.Page,
		Size:          size,
		First:         req.Page == 0,
		Last:          req.Page >= pages-1,
	}, nil
}

// HistoryByCategory returns every entry tagged c, newest first.
func (l *Ledger) HistoryByCategory(ctx context.Context, memberRef string, c category.Category) ([]*entry.Entry, error) {
	ref, err := normalizeMember(memberRef)
	if err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", c), Err: ErrUnknownCategory}
	}

	entries, err := l.store.ListEntries(ctx, ref, entry.ListOpts{Category: c})
	if err != nil {
		return nil, l.storeErr("list entries", err)
	}
	return entries, nil
}

// Stats returns the member's activity counters, lifetime earned total and
// level progress.
func (l *Ledger) Stats(ctx context.Context, memberRef string) (*Stats, error) {
	p, err := l.GetOrCreateProfile(ctx, memberRef)
	if err != nil {
		return nil, err
	}
	earned, err := l.SumEarned(ctx, p.MemberRef)
	if err != nil {
		return nil, err
	}

	carbon, count := p.Monthly(profile.MonthKey(l.localNow()))
	return &Stats{
		Profile:              p,
		TotalEarned:          earned,
		MonthlyCarbonSaved:   carbon,
		MonthlyActivityCount: count,
		Level:                l.levels.ProgressFor(earned),
	}, nil
}

// Verify checks the member's profile balance against the log. It returns
// ErrBalanceDrift along with the details when they disagree.
func (l *Ledger) Verify(ctx context.Context, memberRef string) (*Verification, error) {
	ref, err := normalizeMember(memberRef)
	if err != nil {
		return nil, err
	}
	p, err := l.store.GetProfile(ctx, ref)
	if err != nil {
		return nil, l.storeErr("get profile", err)
	}

	v := &Verification{MemberRef: ref, Balance: p.CurrentBalance}
	if v.LogSum, err = l.store.SumAmount(ctx, ref, entry.SumQuery{}); err != nil {
		return nil, l.storeErr("sum entries", err)
	}
	if v.Entries, err = l.store.CountEntries(ctx, ref, entry.ListOpts{}); err != nil {
		return nil, l.storeErr("count entries", err)
	}

	latest, err := l.store.ListEntries(ctx, ref, entry.ListOpts{Limit: 1})
	if err != nil {
		return nil, l.storeErr("list entries", err)
	}
	if len(latest) > 0 {
		v.LastBalanceAfter = latest[0].BalanceAfter
	}

	v.Consistent = v.Balance == v.LogSum && v.Entries == p.LastSequence
	if len(latest) > 0 && latest[0].Sequence == p.LastSequence {
		v.Consistent = v.Consistent && v.LastBalanceAfter == v.Balance
	}
	if !v.Consistent {
		l.logger.Error("ledger balance drift detected",
			"member", ref,
			"balance", v.Balance,
			"log_sum", v.LogSum,
			"last_balance_after", v.LastBalanceAfter,
		)
		return v, ErrBalanceDrift
	}
	return v, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
