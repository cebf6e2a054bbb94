// Package websocket pushes transaction events to the connected sessions of
// the users taking part in them.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/models"
)

const outboxSize = 256

type delivery struct {
	message models.WSMessage
	userIDs []primitive.ObjectID
}

type Hub struct {
	clients    map[primitive.ObjectID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	outbox     chan delivery
	done       chan struct{}
	mu         sync.Mutex
	log        logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbox:     make(chan delivery, outboxSize),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run routes messages until ctx is cancelled, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, sessions := range h.clients {
				for client := range sessions {
					close(client.send)
				}
			}
			h.clients = make(map[primitive.ObjectID]map[*Client]bool)
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			h.log.WithField("userId", client.UserID.Hex()).Debug("Hub.Register")
		case client := <-h.unregister:
			h.remove(client)
		case d := <-h.outbox:
			h.deliver(d)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions := h.clients[client.UserID]
	if _, ok := sessions[client]; !ok {
		return
	}
	delete(sessions, client)
	if len(sessions) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.send)
	h.log.WithField("userId", client.UserID.Hex()).Debug("Hub.Unregister")
}

func (h *Hub) deliver(d delivery) {
	var slow []*Client

	h.mu.Lock()
	seen := make(map[primitive.ObjectID]bool, len(d.userIDs))
	for _, userID := range d.userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		for client := range h.clients[userID] {
			select {
			case client.send <- d.message:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		h.log.WithField("userId", client.UserID.Hex()).Warn("Hub.Deliver.SlowClient")
		h.remove(client)
	}
}

// Notify queues event for every session of userIDs. It never blocks; when
// the outbox is full the event is dropped.
func (h *Hub) Notify(event string, data interface{}, userIDs ...primitive.ObjectID) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("Hub.Notify.Marshal")
		return
	}

	d := delivery{
		message: models.WSMessage{Event: event, Data: json.RawMessage(raw)},
		userIDs: userIDs,
	}
	select {
	case h.outbox <- d:
	default:
		h.log.WithField("event", event).Warn("Hub.Notify.Dropped")
	}
}

// Connected reports how many sessions userID has open.
func (h *Hub) Connected(userID primitive.ObjectID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
