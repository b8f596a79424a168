package models

import "time"

// Frame kinds carried over the per-booking websocket subscription. One
// subscription feeds both the message log and the read-pointer side
// channel, so every payload is wrapped in a typed frame.
const (
	FrameEntry       = "entry"        // new log entry appended
	FrameReadPointer = "read_pointer" // participant advanced their pointer
	FrameExchange    = "exchange"     // exchange record changed status
)

// ChatEntry is the wire form of a LogEntry. Until the server acknowledges
// an optimistic append, ID is zero and TempID identifies the entry.
type ChatEntry struct {
	ID            uint      `json:"id"`
	TempID        string    `json:"temp_id,omitempty"`
	BookingID     string    `json:"booking_id"`
	ActorID       string    `json:"actor_id"`
	Text          string    `json:"text"`
	Kind          string    `json:"kind"`
	ExchangeID    *string   `json:"exchange_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	DeliveryState string    `json:"delivery_state,omitempty"`
}

// ReadPointerSync is the side-channel payload broadcast when a
// participant advances their read pointer. Only the latest value matters;
// it is not part of the log.
type ReadPointerSync struct {
	BookingID     string `json:"booking_id"`
	ParticipantID string `json:"participant_id"`
	LastSeenLogID uint   `json:"last_seen_log_id"`
}

// ExchangeSync notifies viewers that an exchange record transitioned.
// Joining details never travel in a frame; clients fetch them through the
// gated credential endpoint.
type ExchangeSync struct {
	BookingID  string         `json:"booking_id"`
	ExchangeID string         `json:"exchange_id"`
	Status     ExchangeStatus `json:"status"`
}

// Frame is the envelope for everything pushed over a booking channel.
type Frame struct {
	Type        string           `json:"type"`
	BookingID   string           `json:"booking_id"`
	Entry       *ChatEntry       `json:"entry,omitempty"`
	ReadPointer *ReadPointerSync `json:"read_pointer,omitempty"`
	Exchange    *ExchangeSync    `json:"exchange,omitempty"`
}

// WireEntry converts a stored LogEntry to its wire form. Entries coming
// from the store are by definition acknowledged.
func WireEntry(e *LogEntry) ChatEntry {
	return ChatEntry{
		ID:            e.ID,
		TempID:        e.TempID,
		BookingID:     e.BookingID,
		ActorID:       e.ActorID,
		Text:          e.Text,
		Kind:          e.Kind,
		ExchangeID:    e.ExchangeID,
		CreatedAt:     e.CreatedAt,
		DeliveryState: DeliverySent,
	}
}
