package ecoseed

import (
	"errors"
	"fmt"

	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput    = errors.New("ecoseed: invalid input")
	ErrUnauthenticated = errors.New("ecoseed: unauthenticated")

	// Validation errors
	ErrInvalidAmount      = errors.New("ecoseed: amount must be positive")
	ErrUnknownCategory    = category.ErrUnknown
	ErrCategoryNotAllowed = errors.New("ecoseed: category not allowed for this operation")

	// State errors
	ErrInsufficientBalance = errors.New("ecoseed: insufficient balance")
	ErrMemberNotFound      = errors.New("ecoseed: member not found")
	ErrProfileNotFound     = errors.New("ecoseed: profile not found")
	ErrProfileExists       = errors.New("ecoseed: profile already exists")
	ErrBalanceDrift        = errors.New("ecoseed: balance does not match transaction log")
	ErrBalanceOverflow     = errors.New("ecoseed: balance would exceed the maximum")

	// ErrSummaryUnavailable means a posting committed but the summary that
	// follows it could not be read. The posting must not be repeated.
	ErrSummaryUnavailable = errors.New("ecoseed: posting committed but summary unavailable")

	// Store errors
	ErrStoreClosed       = errors.New("ecoseed: store is closed")
	ErrTransactionFailed = errors.New("ecoseed: transaction failed")
	ErrMigrationFailed   = errors.New("ecoseed: migration failed")
)

// Kind classifies an error at the ledger service boundary.
type Kind int

const (
	// KindUnknown is any error the ledger did not classify.
	KindUnknown Kind = iota
	// KindValidation is bad input rejected before any mutation.
	KindValidation
	// KindState is a well-formed request the current state cannot satisfy.
	KindState
	// KindPersistence is a storage failure; nothing was committed.
	KindPersistence
	// KindUnauthenticated is a request without a resolvable caller.
	KindUnauthenticated
	// KindCommitted is a failure after the posting was committed.
	KindCommitted
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindPersistence:
		return "persistence"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ecoseed: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap exposes the matching sentinel, defaulting to ErrInvalidInput.
func (e ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// PersistenceError wraps a storage failure. The unit of work it belonged to
// was rolled back, so the operation may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ecoseed: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CommittedError reports a posting that is durable even though the call
// failed afterwards. Entry carries the assigned sequence and balance.
type CommittedError struct {
	Entry *entry.Entry
	Err   error
}

func (e *CommittedError) Error() string {
	return fmt.Sprintf("ecoseed: entry %s committed at sequence %d (balance %d), summary unavailable: %v",
		e.Entry.ID, e.Entry.Sequence, e.Entry.BalanceAfter, e.Err)
}

func (e *CommittedError) Unwrap() []error { return []error{ErrSummaryUnavailable, e.Err} }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "ecoseed: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("ecoseed: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (e MultiError) Unwrap() []error { return e.Errors }

// KindOf classifies err.
func KindOf(err error) Kind {
	var pe *PersistenceError
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrSummaryUnavailable):
		return KindCommitted
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrUnknownCategory),
		errors.Is(err, ErrCategoryNotAllowed):
		return KindValidation
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrBalanceDrift),
		errors.Is(err, ErrBalanceOverflow):
		return KindState
	case errors.As(err, &pe),
		errors.Is(err, ErrTransactionFailed),
		errors.Is(err, ErrStoreClosed),
		errors.Is(err, ErrMigrationFailed):
		return KindPersistence
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsState reports whether err is a state error.
func IsState(err error) bool { return KindOf(err) == KindState }

// IsUnauthenticated reports whether err means no caller could be resolved.
func IsUnauthenticated(err error) bool { return KindOf(err) == KindUnauthenticated }

// IsCommitted reports whether err was returned after the posting committed.
func IsCommitted(err error) bool { return KindOf(err) == KindCommitted }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	if IsCommitted(err) {
		return false
	}
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrProfileNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return KindOf(err) == KindPersistence && !errors.Is(err, ErrStoreClosed)
}
