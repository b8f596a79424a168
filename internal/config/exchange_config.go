package config

import "time"

const (
	// Reveal window
	DefaultRevealWindow = 24 * time.Hour
	MaskPlaceholder     = "••••••••" // fixed width regardless of value length

	// Escalation
	MaxMismatchStrikes = 2

	// Log pagination
	DefaultPageSize = 30
	MaxPageSize     = 100

	// Free-text field limits
	MaxFieldValueLength = 512
	MaxMessageLength    = 2000
)

// EntryKinds written into the booking log for exchange lifecycle events.
const (
	EntryKindMessage       = "message"
	EntryKindDetailsSent   = "details_sent"
	EntryKindRevealed      = "revealed"
	EntryKindConfirmed     = "confirmed"
	EntryKindIssueReported = "issue_reported"
	EntryKindHostResolved  = "host_resolved"
	EntryKindMismatch      = "mismatch_reported"
	EntryKindEscalated     = "escalated"
)
