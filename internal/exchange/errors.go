// Package exchange implements the credential hand-off lifecycle: one
// status-tagged ExchangeRecord per booking moving through send, reveal,
// confirmation and dispute transitions, with a gated secure-reveal
// protocol and a fixed expiry window.
package exchange

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition signals an operation attempted from a state that
// does not permit it. If role-gating is correct this is unreachable from
// the UI; it is logged, never shown raw to the user.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrForbidden signals an actor invoking an action their role does not
// permit on the booking.
var ErrForbidden = errors.New("actor not permitted for this action")

// ErrWarningRequired signals a reveal attempted before the one-time risk
// warning was acknowledged and without a persisted opt-out.
var ErrWarningRequired = errors.New("risk warning acknowledgement required")

// ErrNotFound signals a stale or revoked credential reference. Callers
// treat it like expiry.
var ErrNotFound = errors.New("exchange record not found")

// FieldError is a single recoverable validation failure on one payload
// field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level failures of a sendDetails
// payload. It causes no state change and no log entry.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) add(field, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message})
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool { return len(v.Fields) == 0 }
