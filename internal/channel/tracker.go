package channel

import (
	"log"

	"dapbuddy/backend/internal/models"
	"dapbuddy/backend/internal/storage"
)

// ReadReceiptTracker maintains the per-participant "last seen" pointer
// over a booking's log and broadcasts advances on the channel's side
// channel so other tabs and the counterpart sync their unread badges.
type ReadReceiptTracker struct {
	Storage storage.Storage
}

// NewReadReceiptTracker creates a tracker over the given storage.
func NewReadReceiptTracker(s storage.Storage) *ReadReceiptTracker {
	return &ReadReceiptTracker{Storage: s}
}

// MarkRead advances the participant's pointer to lastSeenLogID. Pointers
// only move forward: a stale value is a no-op, not an error, because
// multiple tabs race each other. Returns whether the pointer moved.
func (t *ReadReceiptTracker) MarkRead(bookingID, participantID string, lastSeenLogID uint) (bool, error) {
	current, err := t.Storage.GetReadPointer(bookingID, participantID)
	if err != nil {
		return false, err
	}
	if current != nil && lastSeenLogID <= current.LastSeenLogID {
		return false, nil
	}

	ptr := &models.ReadPointer{
		BookingID:     bookingID,
		ParticipantID: participantID,
		LastSeenLogID: lastSeenLogID,
	}
	if err := t.Storage.SaveReadPointer(ptr); err != nil {
		return false, err
	}

	if err := t.Storage.PublishReadPointer(models.ReadPointerSync{
		BookingID:     bookingID,
		ParticipantID: participantID,
		LastSeenLogID: lastSeenLogID,
	}); err != nil {
		// the pointer is saved; the broadcast is best-effort
		log.Printf("ERROR: Failed to broadcast read pointer for booking %s: %v", bookingID, err)
	}
	return true, nil
}

// UnreadCount returns the number of log entries newer than the
// participant's pointer, excluding their own entries.
func (t *ReadReceiptTracker) UnreadCount(bookingID, participantID string) (int64, error) {
	var after uint
	if ptr, err := t.Storage.GetReadPointer(bookingID, participantID); err != nil {
		return 0, err
	} else if ptr != nil {
		after = ptr.LastSeenLogID
	}
	return t.Storage.CountEntriesAfter(bookingID, after, participantID)
}
