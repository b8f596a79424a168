package channel_test

import "dapbuddy/backend/internal/models"

type MockClient struct {
	connID    string
	userID    string
	bookingID string
	// RecvChannel is what the hub's send channel feeds into.
	RecvChannel chan models.Frame
	closed      bool
}

func newMockClient(connID, userID, bookingID string) *MockClient {
	return &MockClient{
		connID:      connID,
		userID:      userID,
		bookingID:   bookingID,
		RecvChannel: make(chan models.Frame, 10),
	}
}

// newBlockedClient has no buffer, so any dispatch to it fails the
// non-blocking send and the hub drops it as a slow consumer.
func newBlockedClient(connID, userID, bookingID string) *MockClient {
	return &MockClient{
		connID:      connID,
		userID:      userID,
		bookingID:   bookingID,
		RecvChannel: make(chan models.Frame),
	}
}

func (c *MockClient) GetConnID() string    { return c.connID }
func (c *MockClient) GetUserID() string    { return c.userID }
func (c *MockClient) GetBookingID() string { return c.bookingID }

func (c *MockClient) GetSendChannel() chan<- models.Frame {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed = true
}
