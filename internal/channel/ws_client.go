package channel

import (
	"encoding/json"
	"log"
	"time"

	"dapbuddy/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient реалізує інтерфейс channel.Client поверх одного
// з'єднання gorilla/websocket.
type WebSocketClient struct {
	ConnID    string
	UserID    string
	BookingID string
	Conn      *websocket.Conn
	Hub       *ManagerService
	Send      chan models.Frame
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) GetConnID() string                   { return c.ConnID }
func (c *WebSocketClient) GetUserID() string                   { return c.UserID }
func (c *WebSocketClient) GetBookingID() string                { return c.BookingID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Frame { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	close(c.Send)
	// readPump зупиниться сам, коли Conn.Close() буде викликано в його defer
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var entry models.ChatEntry
		if err := json.Unmarshal(message, &entry); err != nil {
			log.Printf("Error decoding JSON from client %s: %v", c.ConnID, err)
			continue // Пропускаємо невірне повідомлення
		}

		// The server, not the client, decides identity and channel.
		entry.ActorID = c.UserID
		entry.BookingID = c.BookingID

		c.Hub.IncomingCh <- entry
	}
}

// writePump читає фрейми з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			dataToWrite, err := json.Marshal(frame)
			if err != nil {
				log.Printf("Error encoding JSON for client %s: %v", c.ConnID, err)
				continue
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(dataToWrite)

			// Перевіряємо, чи є ще фрейми у каналі (для ефективності)
			n := len(c.Send)
			for i := 0; i < n; i++ {
				nextFrame := <-c.Send
				extraData, _ := json.Marshal(nextFrame)
				w.Write(extraData)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
