package channel

import "dapbuddy/backend/internal/models"

// Client is the interface for one realtime subscription to a booking
// channel. A participant with several tabs or devices holds several
// independent clients; the hub fans frames out to all of them.
type Client interface {
	// GetConnID returns the unique identifier of this connection.
	GetConnID() string
	// GetUserID returns the participant the connection belongs to.
	GetUserID() string
	// GetBookingID returns the booking channel the client subscribed to.
	GetBookingID() string

	// GetSendChannel returns the channel the hub pushes frames into for
	// this connection. It is a send-only channel.
	GetSendChannel() chan<- models.Frame

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and channels.
	Close()
}
