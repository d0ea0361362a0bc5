// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/catalysthq/catalyst/internal/platform/sec"
)

// # Client Events

const (
	// EventJoinRoom subscribes the connection to a named room.
	EventJoinRoom = "join:room"

	// EventLeaveRoom unsubscribes the connection from a named room.
	EventLeaveRoom = "leave:room"

	// EventMarkNotificationRead flags a notification as read without a
	// round-trip through the REST API.
	EventMarkNotificationRead = "notification:mark-read"
)

// # Connection Tuning

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// pongWait is how long the connection survives without a pong.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; client events are tiny.
	maxMessageSize = 4 * 1024

	// sendQueueSize is the per-client outbound buffer. Overflow means the
	// reader has stalled and the hub disconnects it.
	sendQueueSize = 64
)

// NotificationMarker is the subset of the notification store the gateway
// needs for the mark-read event.
type NotificationMarker interface {
	MarkRead(ctx context.Context, userID, notificationID string) error
}

// Client is one authenticated WebSocket connection.
//
// The rooms set is owned by the hub and only touched under the hub's lock.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	identity      *sec.Identity
	connectionID  string
	send          chan []byte
	rooms         map[string]struct{}
	notifications NotificationMarker
	logger        *slog.Logger
}

type joinRoomPayload struct {
	Room string `json:"room"`
}

type markReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// readPump consumes inbound frames until the connection drops, dispatching
// recognized client events. Runs as the per-connection foreground goroutine.
func (client *Client) readPump() {
	defer func() {
		client.hub.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Warn("websocket read failed",
					slog.String("user_id", client.identity.UserID),
					slog.Any("error", err),
				)
			}
			return
		}

		client.dispatch(message)
	}
}

// dispatch routes one inbound envelope. Unknown events are logged and
// dropped; a misbehaving client cannot crash the connection.
func (client *Client) dispatch(message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		client.logger.Warn("malformed client event",
			slog.String("user_id", client.identity.UserID),
			slog.Any("error", err),
		)
		return
	}

	switch envelope.Event {
	case EventJoinRoom:
		var payload joinRoomPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.Room == "" {
			return
		}
		client.hub.Join(client, payload.Room)

	case EventLeaveRoom:
		var payload joinRoomPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.Room == "" {
			return
		}
		client.hub.Leave(client, payload.Room)

	case EventMarkNotificationRead:
		var payload markReadPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.NotificationID == "" {
			return
		}
		// Scoped to the connection's own identity; a client can only mark
		// its own notifications.
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := client.notifications.MarkRead(ctx, client.identity.UserID, payload.NotificationID); err != nil {
			client.logger.Error("mark-read failed",
				slog.String("user_id", client.identity.UserID),
				slog.Any("error", err),
			)
		}

	default:
		client.logger.Debug("unknown client event", slog.String("event", envelope.Event))
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings. Exactly one writePump runs per connection; gorilla allows only one
// concurrent writer.
func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, open := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				// Hub closed the queue: the client was unregistered.
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
