package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrLockContended indicates a per-key write lock could not be obtained.
	// Safe to retry immediately; all writes are deterministic.
	ErrLockContended = errors.New("write lock contended")
)

// ValidationError reports a malformed or incomplete request. The caller can
// correct and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CapacityError reports that a movement would exceed available stock. It
// carries the exact figures so the caller can fix the request.
type CapacityError struct {
	Available int64
	Requested int64
	Key       string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity: requested %d bags, only %d available (%s)", e.Requested, e.Available, e.Key)
}

// StateError reports an operation against a terminal or cleared entity, such
// as approving a rejected movement or double-clearing an outturn.
type StateError struct {
	Entity string
	From   string
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state: cannot %s %s in state %s", e.Op, e.Entity, e.From)
}

// IntegrityError signals that the ledger itself is inconsistent, e.g. a
// reconstructed balance went negative. It is surfaced, never auto-corrected,
// and logged at high severity so callers can distinguish it from bad input.
type IntegrityError struct {
	Key    string
	Date   string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: %s on %s: %s", e.Key, e.Date, e.Detail)
}

// IsCallerError reports whether err is correctable by the caller.
func IsCallerError(err error) bool {
	var ve *ValidationError
	var ce *CapacityError
	var se *StateError
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &se)
}

// UserSafeMessage returns a message safe to show to API consumers. Internal
// failures collapse to a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsCallerError(err) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrLockContended) {
		return err.Error()
	}
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie.Error()
	}
	return "internal error"
}
