package ecoseed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/types"
)

// Fixed rewards for the convenience earn paths.
const (
	StepsPerSeed    = 1000
	QuizReward      = 5
	ChallengeReward = 10
)

// EarnInput is a request to credit Eco-Seeds.
type EarnInput struct {
	Category    category.Category
	Amount      int64
	Description string
	// OccurredAt defaults to the current time.
	OccurredAt time.Time
}

// SpendInput is a request to debit Eco-Seeds for a use-side category.
type SpendInput struct {
	Category    category.Category
	Amount      int64
	Description string
	OccurredAt  time.Time
}

// Earn credits amount seeds to the member and returns a fresh summary.
func (l *Ledger) Earn(ctx context.Context, memberRef string, in EarnInput) (*Summary, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := validateCategory(in.Category, category.SideEarn); err != nil {
		return nil, err
	}

	e := &entry.Entry{
		Direction:   entry.DirectionEarn,
		Category:    in.Category,
		Description: describe(in.Description, in.Category.Label()+" earned"),
		Amount:      in.Amount,
		OccurredAt:  in.OccurredAt,
	}
	return l.post(ctx, "earn", memberRef, e, 0)
}

// Spend debits amount seeds for a use-side category such as a donation.
func (l *Ledger) Spend(ctx context.Context, memberRef string, in SpendInput) (*Summary, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := validateCategory(in.Category, category.SideUse); err != nil {
		return nil, err
	}

	e := &entry.Entry{
		Direction:   entry.DirectionUse,
		Category:    in.Category,
		Description: describe(in.Description, in.Category.Label()+" used"),
		Amount:      -in.Amount,
		OccurredAt:  in.OccurredAt,
	}
	return l.post(ctx, "spend", memberRef, e, 0)
}

// Convert moves amount seeds into the Hana Money balance at the fixed rate.
// It fails with ErrInsufficientBalance, and writes nothing, when the
// member holds fewer than amount seeds.
func (l *Ledger) Convert(ctx context.Context, memberRef string, amount int64) (*Summary, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	e := &entry.Entry{
		Direction:   entry.DirectionConvert,
		Category:    category.HanaMoneyConversion,
		Description: "Converted to Hana Money",
		Amount:      -amount,
	}
	return l.post(ctx, "convert", memberRef, e, types.Seeds(amount).ToHanaMoney().Value)
}

// EarnForWalking credits one seed per thousand steps, at least one seed
// for any positive step count.
func (l *Ledger) EarnForWalking(ctx context.Context, memberRef string, steps int64) (*Summary, error) {
	if steps <= 0 {
		return nil, ValidationError{Field: "steps", Message: "must be positive", Err: ErrInvalidAmount}
	}
	return l.Earn(ctx, memberRef, EarnInput{
		Category:    category.Walking,
		Amount:      max(steps/StepsPerSeed, 1),
		Description: fmt.Sprintf("Walked %d steps", steps),
	})
}

// EarnForQuiz credits the fixed daily quiz reward.
func (l *Ledger) EarnForQuiz(ctx context.Context, memberRef, quizType string) (*Summary, error) {
	desc := "Daily quiz completed"
	if t := strings.TrimSpace(quizType); t != "" {
		desc = t + " quiz completed"
	}
	return l.Earn(ctx, memberRef, EarnInput{
		Category:    category.DailyQuiz,
		Amount:      QuizReward,
		Description: desc,
	})
}

// EarnForChallenge credits the fixed eco challenge reward.
func (l *Ledger) EarnForChallenge(ctx context.Context, memberRef, challengeName string) (*Summary, error) {
	name := strings.TrimSpace(challengeName)
	if name == "" {
		return nil, ValidationError{Field: "challenge", Message: "challenge name is required"}
	}
	return l.Earn(ctx, memberRef, EarnInput{
		Category:    category.EcoChallenge,
		Amount:      ChallengeReward,
		Description: name + " challenge completed",
	})
}

// post runs one balance mutation: resolve the profile, apply the guarded
// posting atomically, notify plugins, then re-derive the summary. Once the
// posting is committed any later failure is a CommittedError.
func (l *Ledger) post(ctx context.Context, op, memberRef string, e *entry.Entry, secondaryDelta int64) (*Summary, error) {
	p, err := l.GetOrCreateProfile(ctx, memberRef)
	if err != nil {
		l.plugins.EmitMutationFailed(ctx, op, memberRef, err)
		return nil, err
	}

	e.ID = id.NewEntryID()
	e.MemberRef = p.MemberRef
	if e.OccurredAt.IsZero() {
		e.OccurredAt = l.now()
	}
	// Millisecond precision is what every backend can store and order by.
	e.OccurredAt = e.OccurredAt.UTC().Truncate(time.Millisecond)
	e.CreatedAt = l.now()

	if err := e.Validate(); err != nil {
		err = ValidationError{Field: "entry", Message: err.Error()}
		l.plugins.EmitMutationFailed(ctx, op, p.MemberRef, err)
		return nil, err
	}

	updated, err := l.store.PostEntry(ctx, e, secondaryDelta)
	if err != nil {
		err = l.storeErr(op, err)
		l.logger.Warn("ledger mutation rejected",
			"op", op,
			"member", p.MemberRef,
			"amount", e.Amount,
			"error", err,
		)
		l.plugins.EmitMutationFailed(ctx, op, p.MemberRef, err)
		return nil, err
	}

	l.logger.Info("ledger entry posted",
		"op", op,
		"member", updated.MemberRef,
		"category", e.Category,
		"amount", e.Amount,
		"balance_after", e.BalanceAfter,
		"sequence", e.Sequence,
	)
	l.plugins.EmitPosted(ctx, e, updated)

	summary, err := l.summarize(ctx, updated)
	if err != nil {
		l.logger.Error("summary unavailable after posting",
			"op", op,
			"member", updated.MemberRef,
			"sequence", e.Sequence,
			"error", err,
		)
		return nil, &CommittedError{Entry: e, Err: err}
	}
	return summary, nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return ValidationError{Field: "amount", Message: "must be positive", Err: ErrInvalidAmount}
	}
	return nil
}

func validateCategory(c category.Category, side category.Side) error {
	if !c.Valid() {
		return ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", c), Err: ErrUnknownCategory}
	}
	if c.Side() != side {
		return ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("%s cannot be used for %s", c, side),
			Err:     ErrCategoryNotAllowed,
		}
	}
	return nil
}

func describe(given, fallback string) string {
	if d := strings.TrimSpace(given); d != "" {
		return d
	}
	return fallback
}
