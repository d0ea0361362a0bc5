// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalysthq/catalyst/internal/platform/sec"
)

type recordingMarker struct {
	userID         string
	notificationID string
	calls          int
}

func (m *recordingMarker) MarkRead(_ context.Context, userID, notificationID string) error {
	m.userID = userID
	m.notificationID = notificationID
	m.calls++
	return nil
}

/*
TestClient_Dispatch exercises the inbound event routing without a network
connection.
*/
func TestClient_Dispatch(t *testing.T) {
	newClient := func(marker NotificationMarker) (*Hub, *Client) {
		hub := newTestHub()
		client := &Client{
			hub:           hub,
			identity:      &sec.Identity{UserID: "user-1"},
			connectionID:  "conn-1",
			send:          make(chan []byte, sendQueueSize),
			rooms:         make(map[string]struct{}),
			notifications: marker,
			logger:        hub.logger,
		}
		hub.register(client)
		return hub, client
	}

	t.Run("join_and_leave_room", func(t *testing.T) {
		hub, client := newClient(nil)

		client.dispatch([]byte(`{"event":"join:room","data":{"room":"innovation:7"}}`))
		hub.SendToRoom("innovation:7", "ping", nil)
		assert.Equal(t, "ping", receive(t, client).Event)

		client.dispatch([]byte(`{"event":"leave:room","data":{"room":"innovation:7"}}`))
		hub.SendToRoom("innovation:7", "ping", nil)
		assertEmpty(t, client)
	})

	t.Run("mark_notification_read", func(t *testing.T) {
		marker := &recordingMarker{}
		_, client := newClient(marker)

		client.dispatch([]byte(`{"event":"notification:mark-read","data":{"notificationId":"018f-abc"}}`))

		require.Equal(t, 1, marker.calls)
		// Identity comes from the connection, never from the payload.
		assert.Equal(t, "user-1", marker.userID)
		assert.Equal(t, "018f-abc", marker.notificationID)
	})

	t.Run("malformed_and_unknown_events_ignored", func(t *testing.T) {
		marker := &recordingMarker{}
		_, client := newClient(marker)

		client.dispatch([]byte(`not json`))
		client.dispatch([]byte(`{"event":"join:room","data":{"room":""}}`))
		client.dispatch([]byte(`{"event":"no:such:event","data":{}}`))
		client.dispatch([]byte(`{"event":"notification:mark-read","data":{}}`))

		assert.Zero(t, marker.calls)
		assertEmpty(t, client)
	})
}
