// Package feed pushes moderation queue refresh events to connected moderators
// over websockets, fed by the Redis refresh channel.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Subscriber opens the Redis subscription carrying refresh events.
type Subscriber interface {
	SubscribeRefresh(ctx context.Context) *redis.PubSub
}

// Hub tracks moderator connections and fans refresh events out to them.
type Hub struct {
	Clients map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventCh      chan Event

	subscriber Subscriber
	done       chan struct{}
}

func NewHub(sub Subscriber) *Hub {
	return &Hub{
		Clients:      make(map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventCh:      make(chan Event, 16),
		subscriber:   sub,
		done:         make(chan struct{}),
	}
}

// StartPubSubListener forwards refresh announcements from Redis into EventCh.
func (h *Hub) StartPubSubListener(ctx context.Context) {
	if h.subscriber == nil {
		return
	}
	pubsub := h.subscriber.SubscribeRefresh(ctx)
	go func() {
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
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("malformed refresh event", "error", err)
					continue
				}
				select {
				case h.EventCh <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Run is the hub loop. It owns Clients; nothing else may touch the map while it runs.
func (h *Hub) Run(ctx context.Context) {
	h.StartPubSubListener(ctx)

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.Clients {
				client.Close()
				delete(h.Clients, client)
			}
			return

		case client := <-h.RegisterCh:
			h.Clients[client] = struct{}{}
			slog.Debug("moderator feed connected", "moderator_id", client.GetModeratorID())

		case client := <-h.UnregisterCh:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Close()
			}

		case ev := <-h.EventCh:
			for client := range h.Clients {
				select {
				case client.GetSendChannel() <- ev:
				default:
					// slow consumer, drop it
					delete(h.Clients, client)
					client.Close()
				}
			}
		}
	}
}
