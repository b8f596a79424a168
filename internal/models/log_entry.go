package models

import "gorm.io/gorm"

// Delivery states of a LogEntry as seen by the sending client. Only
// DeliveryState ever mutates after creation.
const (
	DeliverySending = "sending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// LogEntry is one immutable item in a booking's append-only message/event
// log, saved in PostgreSQL. The embedded gorm.Model provides the
// authoritative server-assigned ID and CreatedAt, which define the
// client-visible ordering.
type LogEntry struct {
	gorm.Model

	// BookingID is the channel the entry belongs to.
	BookingID string `gorm:"type:uuid;not null;index:idx_booking_entry;uniqueIndex:idx_booking_temp"`
	// ActorID is the participant (or "system") that produced the entry.
	ActorID string `gorm:"type:text;not null;index:idx_booking_entry"`
	// Text is the free-text body; empty for pure state-transition events.
	Text string `gorm:"type:text"`
	// Kind distinguishes free text from exchange lifecycle events
	// (e.g. "message", "details_sent", "revealed", "issue_reported").
	Kind string `gorm:"type:text;not null"`
	// ExchangeID references the ExchangeRecord an event entry points at.
	ExchangeID *string `gorm:"type:text;index"`
	// TempID echoes the client-generated id so the sender can reconcile
	// its optimistic entry with this authoritative row. Never reused; the
	// partial unique index makes a retried append land on the same row.
	TempID string `gorm:"type:text;uniqueIndex:idx_booking_temp,where:temp_id <> ''"`
}
