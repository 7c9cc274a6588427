package audithook

// Action constants for audit events.
const (
	// Profile actions
	ActionProfileCreated   = "profile.created"
	ActionActivityRecorded = "activity.recorded"

	// Seed actions
	ActionSeedsEarned    = "seeds.earned"
	ActionSeedsSpent     = "seeds.spent"
	ActionSeedsConverted = "seeds.converted"

	// Failure actions
	ActionMutationRejected = "mutation.rejected"
	ActionMutationFailed   = "mutation.failed"
)

// Resource constants for audit events.
const (
	ResourceProfile = "profile"
	ResourceEntry   = "entry"
)

// Category constants for audit events.
const (
	CategoryMembership = "membership"
	CategoryActivity   = "activity"
	CategoryPoints     = "points"
	CategoryConversion = "conversion"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
