// Package audithook bridges ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/plugin"
	"github.com/xraph/ecoseed/profile"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnProfileCreated   = (*Extension)(nil)
	_ plugin.OnActivityRecorded = (*Extension)(nil)
	_ plugin.OnSeedsEarned      = (*Extension)(nil)
	_ plugin.OnSeedsSpent       = (*Extension)(nil)
	_ plugin.OnSeedsConverted   = (*Extension)(nil)
	_ plugin.OnMutationFailed   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	MemberRef  string         `json:"member_ref,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Profile hooks
// ──────────────────────────────────────────────────

// OnProfileCreated implements plugin.OnProfileCreated.
func (e *Extension) OnProfileCreated(ctx context.Context, p *profile.Profile) error {
	return e.record(ctx, ActionProfileCreated, SeverityInfo, OutcomeSuccess,
		ResourceProfile, p.ID.String(), p.MemberRef, CategoryMembership, nil,
		"nickname", p.Nickname,
	)
}

// OnActivityRecorded implements plugin.OnActivityRecorded.
func (e *Extension) OnActivityRecorded(ctx context.Context, p *profile.Profile, a profile.Activity) error {
	return e.record(ctx, ActionActivityRecorded, SeverityInfo, OutcomeSuccess,
		ResourceProfile, p.ID.String(), p.MemberRef, CategoryActivity, nil,
		"carbon_saved", a.CarbonSaved,
		"month", a.Month,
	)
}

// ──────────────────────────────────────────────────
// Balance mutation hooks
// ──────────────────────────────────────────────────

// OnSeedsEarned implements plugin.OnSeedsEarned.
func (e *Extension) OnSeedsEarned(ctx context.Context, en *entry.Entry, p *profile.Profile) error {
	return e.recordEntry(ctx, ActionSeedsEarned, CategoryPoints, en, p)
}

// OnSeedsSpent implements plugin.OnSeedsSpent.
func (e *Extension) OnSeedsSpent(ctx context.Context, en *entry.Entry, p *profile.Profile) error {
	return e.recordEntry(ctx, ActionSeedsSpent, CategoryPoints, en, p)
}

// OnSeedsConverted implements plugin.OnSeedsConverted.
func (e *Extension) OnSeedsConverted(ctx context.Context, en *entry.Entry, p *profile.Profile) error {
	return e.recordEntry(ctx, ActionSeedsConverted, CategoryConversion, en, p)
}

// OnMutationFailed implements plugin.OnMutationFailed. Rejections are
// warnings; storage failures are errors.
func (e *Extension) OnMutationFailed(ctx context.Context, op, memberRef string, err error) error {
	action, severity := ActionMutationRejected, SeverityWarning
	if ecoseed.KindOf(err) == ecoseed.KindPersistence {
		action, severity = ActionMutationFailed, SeverityError
	}
	return e.record(ctx, action, severity, OutcomeFailure,
		ResourceEntry, "", memberRef, CategoryPoints, err,
		"operation", op,
		"kind", ecoseed.KindOf(err).String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func (e *Extension) recordEntry(ctx context.Context, action, category string, en *entry.Entry, p *profile.Profile) error {
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceEntry, en.ID.String(), en.MemberRef, category, nil,
		"category", string(en.Category),
		"amount", en.Amount,
		"sequence", en.Sequence,
		"balance_after", en.BalanceAfter,
		"secondary_balance", p.SecondaryBalance,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, memberRef, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		MemberRef:  memberRef,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"member", memberRef,
			"error", recErr,
		)
	}
	return nil
}
