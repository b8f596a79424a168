package channel

import (
	"encoding/json"
	"log"

	"dapbuddy/backend/internal/models"
	"dapbuddy/backend/internal/storage"
)

// StartPubSubListener запускає Goroutine, яка слухає Redis Pub/Sub і
// передає фрейми всіх бронювань у головний канал хаба.
func (m *ManagerService) StartPubSubListener() {
	svc, ok := m.Storage.(*storage.Service)
	if !ok || svc.Redis == nil {
		// tests drive PubSubCh directly
		return
	}

	go func() {
		pubsub := svc.SubscribeToAllBookings()
		defer pubsub.Close()

		ch := pubsub.Channel()

		for msg := range ch {
			var frame models.Frame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				log.Printf("Error unmarshalling Redis frame: %v", err)
				continue
			}
			m.PubSubCh <- frame
		}
	}()
}
