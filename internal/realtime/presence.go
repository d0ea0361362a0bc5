// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

// Package realtime implements the WebSocket gateway: authenticated
// connections, room membership, user presence, and event fan-out.
package realtime

import "sync"

// PresenceRegistry tracks which users currently hold at least one open
// connection. A user may be connected from several devices at once; they are
// online while any connection remains.
//
// Purely in-memory. Presence resets on process restart, which is the correct
// behavior: the connections are gone too.
type PresenceRegistry struct {
	mutex       sync.RWMutex
	connections map[string]map[string]struct{} // userID -> set of connection IDs
}

// NewPresenceRegistry constructs an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		connections: make(map[string]map[string]struct{}),
	}
}

// Add records a new connection for the user.
// Returns true if this connection brought the user online.
func (registry *PresenceRegistry) Add(userID, connectionID string) bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	set, exists := registry.connections[userID]
	if !exists {
		set = make(map[string]struct{})
		registry.connections[userID] = set
	}

	cameOnline := len(set) == 0
	set[connectionID] = struct{}{}
	return cameOnline
}

// Remove drops a connection for the user.
// Returns true if the user went offline (no connections remain).
func (registry *PresenceRegistry) Remove(userID, connectionID string) bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	set, exists := registry.connections[userID]
	if !exists {
		return false
	}

	delete(set, connectionID)
	if len(set) == 0 {
		delete(registry.connections, userID)
		return true
	}

	return false
}

// IsOnline reports whether the user has at least one open connection.
func (registry *PresenceRegistry) IsOnline(userID string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return len(registry.connections[userID]) > 0
}

// OnlineUsers returns the IDs of every currently connected user.
func (registry *PresenceRegistry) OnlineUsers() []string {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	users := make([]string, 0, len(registry.connections))
	for userID := range registry.connections {
		users = append(users, userID)
	}

	return users
}

// ConnectionCount returns the number of open connections for the user.
func (registry *PresenceRegistry) ConnectionCount(userID string) int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return len(registry.connections[userID])
}
