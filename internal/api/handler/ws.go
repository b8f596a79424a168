package handler

import (
	"net/http"

	"dapbuddy/backend/internal/channel"
	"dapbuddy/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and subscribes it to one booking
// channel. The single subscription carries log entries, read-pointer
// syncs and exchange status frames alike.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		// браузерний WebSocket не може виставити заголовок — приймаємо
		// токен і через query
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	userID, err := validateAndGetUserID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	bookingID := c.Query("booking_id")
	if bookingID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "booking_id is required"})
		return
	}

	booking, err := h.Storage.GetBookingByID(bookingID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	if booking.RoleOf(userID) == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not a participant of this booking"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := &channel.WebSocketClient{
		ConnID:    uuid.New().String(),
		UserID:    userID,
		BookingID: bookingID,
		Conn:      conn,
		Hub:       h.Hub,
		Send:      make(chan models.Frame, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
