package models

import "github.com/lib/pq"

// MediationCase is the audit row opened when a host's second mismatch
// strike pushes an exchange into human_intervention_required. Only an
// operator closes it; nothing in the state machine resolves it.
type MediationCase struct {
	CaseID     string `gorm:"primaryKey"`
	BookingID  string `gorm:"type:uuid;index"`
	ExchangeID string `gorm:"type:text;index"`
	HostID     string
	MemberID   string
	// Reasons snapshots every member issue reason reported on the
	// exchange chain, oldest first.
	Reasons pq.StringArray `gorm:"type:text[]"`
	Status  string // "open", "resolved"
}

// MediationCase statuses.
const (
	MediationOpen     = "open"
	MediationResolved = "resolved"
)
