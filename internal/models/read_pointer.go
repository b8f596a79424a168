package models

import "time"

// ReadPointer stores the highest LogEntry ID a participant has
// acknowledged viewing in a booking. Monotonic by convention: writers
// must not move it backwards, the server does not enforce it.
type ReadPointer struct {
	BookingID     string `gorm:"primaryKey;type:uuid"`
	ParticipantID string `gorm:"primaryKey;type:text"`
	LastSeenLogID uint
	UpdatedAt     time.Time
}
