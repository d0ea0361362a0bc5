// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// userRoomPrefix names the private room every connection auto-joins, so
// user-addressed events need no separate delivery path.
const userRoomPrefix = "user:"

// Envelope is the wire format for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub owns every live connection and routes events to them.
//
// # Delivery Semantics
//
// Sends are fire-and-forget. Each client has a bounded outbound queue; a
// client that cannot drain it fast enough gets disconnected rather than
// letting one slow reader stall fan-out for everyone else.
type Hub struct {
	mutex    sync.RWMutex
	clients  map[string]*Client            // connectionID -> client
	rooms    map[string]map[string]*Client // room -> connectionID -> client
	presence *PresenceRegistry
	logger   *slog.Logger
}

// NewHub constructs an empty hub.
func NewHub(presence *PresenceRegistry, logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		presence: presence,
		logger:   logger,
	}
}

// Presence exposes the hub's registry for read-side queries.
func (hub *Hub) Presence() *PresenceRegistry {
	return hub.presence
}

// register adds a freshly authenticated client and auto-joins its user room.
func (hub *Hub) register(client *Client) {
	hub.mutex.Lock()
	hub.clients[client.connectionID] = client
	hub.joinLocked(client, userRoomPrefix+client.identity.UserID)
	hub.mutex.Unlock()

	if hub.presence.Add(client.identity.UserID, client.connectionID) {
		hub.logger.Info("user online", slog.String("user_id", client.identity.UserID))
	}
}

// unregister removes a client from every room and from presence.
// Safe to call more than once for the same client.
func (hub *Hub) unregister(client *Client) {
	hub.mutex.Lock()
	if _, exists := hub.clients[client.connectionID]; !exists {
		hub.mutex.Unlock()
		return
	}

	delete(hub.clients, client.connectionID)
	for room := range client.rooms {
		hub.leaveLocked(client, room)
	}

	// Closed under the write lock so no concurrent fan-out (which sends under
	// the read lock) can write to a closed channel.
	close(client.send)
	hub.mutex.Unlock()

	if hub.presence.Remove(client.identity.UserID, client.connectionID) {
		hub.logger.Info("user offline", slog.String("user_id", client.identity.UserID))
	}
}

// Join adds the client to a named room.
func (hub *Hub) Join(client *Client, room string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	hub.joinLocked(client, room)
}

// Leave removes the client from a named room. Leaving the client's own user
// room is refused; it is the delivery address for user-directed events.
func (hub *Hub) Leave(client *Client, room string) {
	if room == userRoomPrefix+client.identity.UserID {
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	hub.leaveLocked(client, room)
}

func (hub *Hub) joinLocked(client *Client, room string) {
	members, exists := hub.rooms[room]
	if !exists {
		members = make(map[string]*Client)
		hub.rooms[room] = members
	}

	members[client.connectionID] = client
	client.rooms[room] = struct{}{}
}

func (hub *Hub) leaveLocked(client *Client, room string) {
	delete(client.rooms, room)

	members, exists := hub.rooms[room]
	if !exists {
		return
	}

	delete(members, client.connectionID)
	if len(members) == 0 {
		delete(hub.rooms, room)
	}
}

// SendToUser delivers an event to every live connection of one user.
func (hub *Hub) SendToUser(userID, event string, data interface{}) {
	hub.SendToRoom(userRoomPrefix+userID, event, data)
}

// SendToRoom delivers an event to every member of a room.
// Rooms with no members absorb the event silently.
func (hub *Hub) SendToRoom(room, event string, data interface{}) {
	message, err := encodeEnvelope(event, data)
	if err != nil {
		hub.logger.Error("event encoding failed", slog.String("event", event), slog.Any("error", err))
		return
	}

	hub.mutex.RLock()
	var slow []*Client
	for _, client := range hub.rooms[room] {
		if !hub.deliver(client, message) {
			slow = append(slow, client)
		}
	}
	hub.mutex.RUnlock()

	hub.dropSlow(slow)
}

// Broadcast delivers an event to every connected client.
func (hub *Hub) Broadcast(event string, data interface{}) {
	message, err := encodeEnvelope(event, data)
	if err != nil {
		hub.logger.Error("event encoding failed", slog.String("event", event), slog.Any("error", err))
		return
	}

	hub.mutex.RLock()
	var slow []*Client
	for _, client := range hub.clients {
		if !hub.deliver(client, message) {
			slow = append(slow, client)
		}
	}
	hub.mutex.RUnlock()

	hub.dropSlow(slow)
}

// deliver enqueues a message without blocking, under the hub's read lock.
// Returns false when the client's queue is full.
func (hub *Hub) deliver(client *Client, message []byte) bool {
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// dropSlow tears down clients whose outbound queue stayed full. A full queue
// means the reader has stalled; the connection is disconnected rather than
// waited on.
func (hub *Hub) dropSlow(clients []*Client) {
	for _, client := range clients {
		hub.logger.Warn("slow receiver disconnected",
			slog.String("user_id", client.identity.UserID),
			slog.String("connection_id", client.connectionID),
		)
		hub.unregister(client)
	}
}

func encodeEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Event: event, Data: raw})
}
