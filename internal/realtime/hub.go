// Package realtime fans grievance ledger events out to websocket
// subscribers. Events arrive over Redis Pub/Sub so every instance sees
// writes made by any other instance.
package realtime

import (
	"context"
	"encoding/json"
	"log"

	"gramseva/backend/internal/models"
	"gramseva/backend/internal/storage"
)

// Hub tracks connected websocket clients and broadcasts every grievance
// event to all of them.
type Hub struct {
	Storage *storage.Service

	RegisterCh   chan *Client
	UnregisterCh chan *Client

	clients map[*Client]bool
	events  chan models.GrievanceEvent
}

// NewHub creates a hub over the storage service's Redis connection.
func NewHub(s *storage.Service) *Hub {
	return &Hub{
		Storage:      s,
		RegisterCh:   make(chan *Client),
		UnregisterCh: make(chan *Client),
		clients:      make(map[*Client]bool),
		events:       make(chan models.GrievanceEvent),
	}
}

// startPubSubListener subscribes to the Redis broadcast channel and feeds
// decoded events into the hub loop.
func (h *Hub) startPubSubListener(ctx context.Context) {
	go func() {
		pubsub := h.Storage.SubscribeEvents()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.GrievanceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("ERROR: Failed to unmarshal grievance event: %v", err)
					continue
				}
				h.events <- ev
			}
		}
	}()
}

// Run is the hub's main dispatcher goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.startPubSubListener(ctx)
	log.Println("Realtime hub started.")

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
			}
			return

		case client := <-h.RegisterCh:
			h.clients[client] = true

		case client := <-h.UnregisterCh:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}

		case ev := <-h.events:
			for client := range h.clients {
				select {
				case client.Send <- ev:
				default:
					// Slow consumer: drop the connection rather than block
					// the dispatcher.
					delete(h.clients, client)
					client.Close()
				}
			}
		}
	}
}
