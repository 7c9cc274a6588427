package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/profile"
)

type captured struct {
	events []*AuditEvent
}

func (c *captured) Record(_ context.Context, evt *AuditEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func TestEntryEvents(t *testing.T) {
	rec := &captured{}
	ext := New(rec)
	ctx := context.Background()

	p := profile.New("m1", "Mina")
	p.SecondaryBalance = 5
	en := &entry.Entry{
		ID: id.NewEntryID(), MemberRef: "m1", Sequence: 3,
		Direction: entry.DirectionConvert, Category: category.HanaMoneyConversion,
		Amount: -5, BalanceAfter: 20,
	}

	if err := ext.OnSeedsConverted(ctx, en, p); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Action != ActionSeedsConverted {
		t.Errorf("Action = %q, want %q", evt.Action, ActionSeedsConverted)
	}
	if evt.ResourceID != en.ID.String() {
		t.Errorf("ResourceID = %q, want %q", evt.ResourceID, en.ID.String())
	}
	if evt.MemberRef != "m1" {
		t.Errorf("MemberRef = %q, want %q", evt.MemberRef, "m1")
	}
	if evt.Metadata["amount"] != int64(-5) {
		t.Errorf("amount = %v, want -5", evt.Metadata["amount"])
	}
	if evt.Category != CategoryConversion {
		t.Errorf("Category = %q, want %q", evt.Category, CategoryConversion)
	}
}

func TestMutationFailedSeverity(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantAction   string
		wantSeverity string
	}{
		{"insufficient", ecoseed.ErrInsufficientBalance, ActionMutationRejected, SeverityWarning},
		{"validation", ecoseed.ValidationError{Field: "amount"}, ActionMutationRejected, SeverityWarning},
		{"persistence", &ecoseed.PersistenceError{Op: "earn", Err: errors.New("io")}, ActionMutationFailed, SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captured{}
			_ = New(rec).OnMutationFailed(context.Background(), "spend", "m1", tt.err)
			if len(rec.events) != 1 {
				t.Fatalf("events = %d, want 1", len(rec.events))
			}
			evt := rec.events[0]
			if evt.Action != tt.wantAction || evt.Severity != tt.wantSeverity {
				t.Errorf("event = %s/%s, want %s/%s", evt.Action, evt.Severity, tt.wantAction, tt.wantSeverity)
			}
			if evt.Outcome != OutcomeFailure || evt.Reason == "" {
				t.Errorf("outcome = %q, reason = %q, want failure with reason", evt.Outcome, evt.Reason)
			}
		})
	}
}

func TestActionFilters(t *testing.T) {
	p := profile.New("m1", "")
	ctx := context.Background()

	rec := &captured{}
	ext := New(rec, WithEnabledActions(ActionSeedsEarned))
	_ = ext.OnProfileCreated(ctx, p)
	if len(rec.events) != 0 {
		t.Errorf("events = %d, want 0 with profile.created not enabled", len(rec.events))
	}

	rec = &captured{}
	ext = New(rec, WithDisabledActions(ActionActivityRecorded))
	_ = ext.OnActivityRecorded(ctx, p, profile.Activity{CarbonSaved: 1, Month: "2026-03"})
	_ = ext.OnProfileCreated(ctx, p)
	if len(rec.events) != 1 || rec.events[0].Action != ActionProfileCreated {
		t.Errorf("events = %v, want only %s", rec.events, ActionProfileCreated)
	}
}

func TestRecorderErrorSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("backend down")
	}))
	if err := ext.OnProfileCreated(context.Background(), profile.New("m1", "")); err != nil {
		t.Errorf("OnProfileCreated = %v, want nil", err)
	}
}
