package channel

import (
	"log"

	"dapbuddy/backend/internal/config"
	"dapbuddy/backend/internal/models"
	"dapbuddy/backend/internal/storage"
)

// ManagerService is the hub: it tracks connected clients per booking and
// dispatches every frame — locally produced or arriving over Redis — to
// the connections subscribed to that booking.
type ManagerService struct {
	// Clients is keyed by connection ID. Кілька вкладок одного
	// користувача — це окремі клієнти.
	Clients map[string]Client

	// Channels
	IncomingCh   chan models.ChatEntry
	RegisterCh   chan Client
	UnregisterCh chan Client
	// PubSubCh receives frames from the Redis listener. Exported so tests
	// can inject frames directly.
	PubSubCh chan models.Frame

	Storage storage.Storage
}

// NewManagerService creates the hub over the given storage.
func NewManagerService(s storage.Storage) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.ChatEntry),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		PubSubCh:     make(chan models.Frame),
		Storage:      s,
	}
}

// Run is the hub's main dispatch loop.
func (m *ManagerService) Run() {
	m.StartPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.GetConnID()] = client
			log.Printf("Client %s (user %s) joined booking %s",
				client.GetConnID(), client.GetUserID(), client.GetBookingID())

		case client := <-m.UnregisterCh:
			if _, ok := m.Clients[client.GetConnID()]; ok {
				delete(m.Clients, client.GetConnID())
				client.Close()
			}

		case entry := <-m.IncomingCh:
			m.handleIncomingEntry(entry)

		case frame := <-m.PubSubCh:
			m.dispatchFrame(frame)
		}
	}
}

// handleIncomingEntry persists a client-sent entry and publishes the
// authoritative row. On a storage failure the sender's own connections
// get a failed-delivery frame carrying the temp id, so exactly one entry
// stays visible with a retry affordance.
func (m *ManagerService) handleIncomingEntry(entry models.ChatEntry) {
	if entry.Kind == "" {
		entry.Kind = config.EntryKindMessage
	}
	row := &models.LogEntry{
		BookingID: entry.BookingID,
		ActorID:   entry.ActorID,
		Text:      entry.Text,
		Kind:      entry.Kind,
		TempID:    entry.TempID,
	}
	if err := m.Storage.AppendEntry(row); err != nil {
		failed := entry
		failed.DeliveryState = models.DeliveryFailed
		m.sendToUser(entry.BookingID, entry.ActorID, models.Frame{
			Type:      models.FrameEntry,
			BookingID: entry.BookingID,
			Entry:     &failed,
		})
		return
	}

	wire := models.WireEntry(row)
	if err := m.Storage.PublishFrame(entry.BookingID, models.Frame{
		Type:  models.FrameEntry,
		Entry: &wire,
	}); err != nil {
		log.Printf("ERROR: Failed to publish entry %d for booking %s: %v", row.ID, entry.BookingID, err)
	}
}

// dispatchFrame fans a frame out to every connection on the booking.
func (m *ManagerService) dispatchFrame(frame models.Frame) {
	for _, client := range m.Clients {
		if client.GetBookingID() != frame.BookingID {
			continue
		}
		select {
		case client.GetSendChannel() <- frame:
		default:
			// slow consumer, drop the connection
			delete(m.Clients, client.GetConnID())
			client.Close()
		}
	}
}

// sendToUser delivers a frame only to the given participant's connections
// on a booking. Used for delivery failures, which concern only the sender.
func (m *ManagerService) sendToUser(bookingID, userID string, frame models.Frame) {
	for _, client := range m.Clients {
		if client.GetBookingID() != bookingID || client.GetUserID() != userID {
			continue
		}
		select {
		case client.GetSendChannel() <- frame:
		default:
			delete(m.Clients, client.GetConnID())
			client.Close()
		}
	}
}
