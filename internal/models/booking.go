package models

import "time"

// Booking represents one shared seat between a host and a member.
// It holds the fixed participant pair every channel and exchange record
// hangs off of; listing/payment data lives outside this core.
type Booking struct {
	// BookingID is the unique identifier for the booking (UUID).
	BookingID string `gorm:"primaryKey"`
	// HostID is the participant who owns the subscription seat.
	HostID string
	// MemberID is the participant who paid to join the seat.
	MemberID string
	// ServiceID identifies the subscription service, keying the
	// per-service exchange rules.
	ServiceID string
	// IsActive indicates whether the booking is still live.
	IsActive bool
	// StartedAt is the timestamp when the booking was created.
	StartedAt time.Time
	// EndedAt is the timestamp when the booking terminated.
	EndedAt time.Time
}

// RoleOf maps a participant to their role in this booking. Returns an
// empty string for strangers.
func (b *Booking) RoleOf(userID string) string {
	switch userID {
	case b.HostID:
		return RoleHost
	case b.MemberID:
		return RoleMember
	}
	return ""
}

// Participant roles within a booking.
const (
	RoleHost   = "host"
	RoleMember = "member"
)
