package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExchangeStatus is the closed set of lifecycle states for a credential
// hand-off. Exactly one record per booking is active (non-expired,
// non-superseded) at any time.
type ExchangeStatus string

const (
	// StatusPendingHost: the host still owes the member joining details.
	// Fresh records and re-request records start here.
	StatusPendingHost ExchangeStatus = "pending_host"
	// StatusSentToUser: details are stored and the member may reveal them.
	StatusSentToUser ExchangeStatus = "sent_to_user"
	// StatusConfirmed: the member confirmed the details worked.
	StatusConfirmed ExchangeStatus = "confirmed"
	// StatusIssueReported: the member reported the details as broken; a
	// successor pending_host record carries the reason back to the host.
	StatusIssueReported ExchangeStatus = "issue_reported"
	// StatusResolved: the host confirmed the member is in.
	StatusResolved ExchangeStatus = "resolved"
	// StatusMismatchOnce: the host reported the member missing once;
	// control returns to the member for correction.
	StatusMismatchOnce ExchangeStatus = "mismatch_reported_once"
	// StatusHumanIntervention: second mismatch strike. Terminal pending
	// manual mediation, no automatic transition leaves it.
	StatusHumanIntervention ExchangeStatus = "human_intervention_required"
	// StatusExpired: the reveal window elapsed. Observed, never written by
	// a user action; the payload is wiped.
	StatusExpired ExchangeStatus = "expired"
)

// Terminal reports whether no user action can move the record further.
func (s ExchangeStatus) Terminal() bool {
	return s == StatusHumanIntervention || s == StatusExpired
}

// sensitiveMarkers flags joiningDetails field names whose values must stay
// masked until an explicit reveal.
var sensitiveMarkers = []string{"password", "pass", "pin", "secret"}

// JoiningDetails is the flat field-name -> value payload of one exchange,
// stored as a JSON text column.
type JoiningDetails map[string]string

// Value serializes the map for the database.
func (d JoiningDetails) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes the JSON column back into the map.
func (d *JoiningDetails) Scan(src interface{}) error {
	if src == nil {
		*d = JoiningDetails{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("joining details: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*d = JoiningDetails{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// IsSensitiveField reports whether a field name carries a password-like
// marker and must be masked by default.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ConfirmationState is the small per-side confirmation sub-record.
type ConfirmationState struct {
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
}

// ExchangeRecord tracks one credential hand-off for a booking.
// Superseded records are kept for audit and linked via SupersededBy.
type ExchangeRecord struct {
	ID        string `gorm:"primaryKey" json:"id"`
	BookingID string `gorm:"type:uuid;not null;index:idx_booking_exchange" json:"bookingId"`
	HostID    string `gorm:"type:text;not null" json:"hostId"`
	MemberID  string `gorm:"type:text;not null" json:"memberId"`
	// ServiceID selects the per-service rule set (field list, link
	// patterns, reveal window).
	ServiceID string `gorm:"type:text;not null" json:"serviceId"`

	Status ExchangeStatus `gorm:"type:text;not null;index" json:"status"`

	JoiningDetails JoiningDetails `gorm:"type:text" json:"joiningDetails"`

	// FirstSeenAt is stamped by the first successful reveal; ExpiresAt is
	// computed once from it and never moves afterwards.
	FirstSeenAt *time.Time `json:"firstSeenAt"`
	ExpiresAt   *time.Time `gorm:"index" json:"expiresAt"`

	HostConfirmation   ConfirmationState `gorm:"embedded;embeddedPrefix:host_conf_" json:"hostConfirmationState"`
	MemberConfirmation ConfirmationState `gorm:"embedded;embeddedPrefix:member_conf_" json:"memberConfirmationState"`

	// EscalationCount is the host mismatch strike counter, capped at 2.
	EscalationCount int `gorm:"default:0" json:"escalationCount"`

	// IssueReason carries the member's reason on a re-request record.
	IssueReason string `gorm:"type:text" json:"issueReason,omitempty"`

	// SupersededBy points at the re-request record that replaced this one
	// for display purposes. The row itself remains for audit.
	SupersededBy *string `gorm:"type:text" json:"supersededBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates the record ID when the caller did not set one.
func (e *ExchangeRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}

// Revealed reports whether the member has started the reveal window.
func (e *ExchangeRecord) Revealed() bool {
	return e.FirstSeenAt != nil
}

// ExpiredAt reports whether the reveal window has elapsed at the given
// instant. Records never revealed do not expire.
func (e *ExchangeRecord) ExpiredAt(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// EffectiveStatus folds time-driven expiry into the stored status. Expiry
// is observed on read, never written by a user action.
func (e *ExchangeRecord) EffectiveStatus(now time.Time) ExchangeStatus {
	if e.Revealed() && !e.Status.Terminal() && e.ExpiredAt(now) {
		return StatusExpired
	}
	return e.Status
}
